//go:build !unix

package rimg

// currentWindowPixels reports no pixel geometry on platforms without the
// winsize ioctl; callers fall back to the default width stretch.
func currentWindowPixels(fd int) (width, height int) { return 0, 0 }
