//go:build unix

package rimg

import "golang.org/x/sys/unix"

// currentWindowPixels reads the text-area pixel dimensions from the kernel
// window size on the given descriptor. No bytes travel to the terminal, so
// the probe never blocks. Terminals that don't report pixel geometry leave
// xpixel/ypixel at zero; an fd that is not a terminal yields zero too.
func currentWindowPixels(fd int) (width, height int) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0
	}
	return int(ws.Xpixel), int(ws.Ypixel)
}
