package chatws

import (
	"net/url"
	"strings"
)

const (
	DefaultHost = "http://localhost:8080"
	wsPath      = "/ws"
)

// WebsocketURL derives the chat endpoint from an HTTP host: a leading "https://" becomes
// "wss://", otherwise the first "http://" becomes "ws://", and "/ws" is appended.
func WebsocketURL(host string) string {
	if strings.HasPrefix(host, "https://") {
		host = strings.Replace(host, "https://", "wss://", 1)
	} else {
		host = strings.Replace(host, "http://", "ws://", 1)
	}
	return host + wsPath
}

func parseWebsocketURL(host string) (*url.URL, error) {
	return url.Parse(WebsocketURL(host))
}
