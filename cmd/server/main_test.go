package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurlHostForListenAddr(t *testing.T) {
	cases := map[string]string{
		":8080":           "localhost:8080",
		"0.0.0.0:8080":    "localhost:8080",
		"[::]:8080":       "localhost:8080",
		"127.0.0.1:9090":  "127.0.0.1:9090",
		"[::1]:8080":      "[::1]:8080",
		" localhost:9090": "localhost:9090",
		"":                "localhost:8080",
		"   ":             "localhost:8080",
		"localhost":       "localhost", // no port, passes through
	}
	for in, want := range cases {
		assert.Equal(t, want, curlHostForListenAddr(in), "addr %q", in)
	}
}
