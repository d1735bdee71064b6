//go:build nosixel

package rimg

// Sixel support is compiled out under the nosixel tag; the backend is
// simply absent from the registry and the selector falls back to
// unicode blocks.
