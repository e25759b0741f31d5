package net

import "strings"

// HandshakePath ensures the Engine.IO handshake path starts and ends with
// a slash. An empty path yields the Socket.IO default.
func HandshakePath(path string) string {
	p := strings.Trim(strings.TrimSpace(path), "/")
	if p == "" {
		if strings.TrimSpace(path) == "/" {
			return "/"
		}
		return "/socket.io/"
	}
	return "/" + p + "/"
}
