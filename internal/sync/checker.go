package sync

import (
	"context"
	"net"
	"net/http"
	"time"

	"vigil/internal/constants"

	"github.com/sirupsen/logrus"
)

// Checker reports whether the device can reach the incident service.
type Checker interface {
	Check(ctx context.Context) bool
}

// HTTPChecker requires both a usable link and internet reachability. A
// link-local address without a working probe is treated as offline; the
// two conditions are checked in that order because the interface scan is
// free and the probe is not.
type HTTPChecker struct {
	probeURL string
	client   *http.Client
	logger   *logrus.Logger
}

func NewHTTPChecker(probeURL string, httpClient *http.Client, logger *logrus.Logger) *HTTPChecker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(constants.DefaultProbeTimeoutSec) * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &HTTPChecker{
		probeURL: probeURL,
		client:   httpClient,
		logger:   logger,
	}
}

func (c *HTTPChecker) Check(ctx context.Context) bool {
	if !hasLinkAddress() {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.probeURL, nil)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to build connectivity probe request")
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("Connectivity probe failed")
		return false
	}
	defer resp.Body.Close()

	// Client errors still prove the service answered; a 5xx means the
	// backend is down, which is offline as far as syncing is concerned.
	return resp.StatusCode < http.StatusInternalServerError
}

// hasLinkAddress reports whether any interface carries a non-loopback
// address.
func hasLinkAddress() bool {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ipNet.IP.IsLoopback() {
			continue
		}
		if ipNet.IP.To4() != nil || ipNet.IP.To16() != nil {
			return true
		}
	}
	return false
}
