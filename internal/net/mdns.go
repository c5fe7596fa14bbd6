package net

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_roomboard._tcp"

// Advertise announces a board server listening on port until the returned
// server is shut down.
func Advertise(port int, info ...string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if len(info) == 0 {
		info = []string{"RoomBoard"}
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	log.Printf("[MDNS] Advertising %s on port %d as %s", ServiceType, port, host)
	return server, nil
}

// AdvertiseUntil advertises until ctx is done.
func AdvertiseUntil(ctx context.Context, port int) error {
	server, err := Advertise(port)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return server.Shutdown()
}

// Browse collects the host:port of every board server answering within timeout.
func Browse(timeout time.Duration) ([]string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan []string)
	go func() {
		var found []string
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found = append(found, fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port))
		}
		done <- found
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	found := <-done
	if err != nil {
		return nil, fmt.Errorf("browse %s: %w", ServiceType, err)
	}
	return found, nil
}

// Discover returns the base URL of the first board server found on the LAN.
func Discover(timeout time.Duration) (string, error) {
	found, err := Browse(timeout)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no %s server answered within %s", ServiceType, timeout)
	}
	log.Printf("[MDNS] Found board server at %s", found[0])
	return "http://" + found[0], nil
}
