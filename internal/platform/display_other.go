//go:build !windows

package platform

// EnableHighDPI is a no-op outside Windows.
func EnableHighDPI() error {
	return nil
}
