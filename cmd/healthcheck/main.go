// Command healthcheck probes the status API and exits 0 when the service
// answers. It exists so scratch containers, which carry no shell or curl,
// still get a Docker HEALTHCHECK.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"
)

const probeTimeout = 2 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	url := "http://" + probeAddr(os.Getenv("BAGHOUND_LISTEN_ADDR")) + "/api/v1/health"

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 1
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

// probeAddr maps the configured listen address to something dialable from
// inside the container. The server may bind a wildcard address; the probe
// runs next to it, so loopback always reaches it.
func probeAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return "127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
