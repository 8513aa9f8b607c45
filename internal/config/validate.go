package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"unicode"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid values and returns all errors found.
// Dangerous zero-values that would break window placement are clamped to safe
// defaults. Other validation errors are logged as warnings but do not prevent
// startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.Identity == "" {
		errs = append(errs, fmt.Errorf("identity is empty, tracker caption will be blank"))
	}
	for _, r := range c.Identity {
		if unicode.IsControl(r) {
			errs = append(errs, fmt.Errorf("identity contains control characters"))
			break
		}
	}

	// Clamp tracker geometry so placement math never produces a degenerate
	// or off-screen window.
	if c.TrackerWidth < 100 {
		errs = append(errs, fmt.Errorf("tracker_width %d is below minimum 100, clamping", c.TrackerWidth))
		c.TrackerWidth = 100
	} else if c.TrackerWidth > 1024 {
		errs = append(errs, fmt.Errorf("tracker_width %d exceeds maximum 1024, clamping", c.TrackerWidth))
		c.TrackerWidth = 1024
	}

	if c.TrackerHeight < 24 {
		errs = append(errs, fmt.Errorf("tracker_height %d is below minimum 24, clamping", c.TrackerHeight))
		c.TrackerHeight = 24
	} else if c.TrackerHeight > 512 {
		errs = append(errs, fmt.Errorf("tracker_height %d exceeds maximum 512, clamping", c.TrackerHeight))
		c.TrackerHeight = 512
	}

	if c.TrackerBottomMargin < 0 {
		errs = append(errs, fmt.Errorf("tracker_bottom_margin %d is negative, clamping", c.TrackerBottomMargin))
		c.TrackerBottomMargin = 0
	} else if c.TrackerBottomMargin > 256 {
		errs = append(errs, fmt.Errorf("tracker_bottom_margin %d exceeds maximum 256, clamping", c.TrackerBottomMargin))
		c.TrackerBottomMargin = 256
	}

	if c.BridgeWSAddr != "" {
		host, _, err := net.SplitHostPort(c.BridgeWSAddr)
		if err != nil {
			errs = append(errs, fmt.Errorf("bridge_ws_addr %q is not host:port: %w", c.BridgeWSAddr, err))
		} else if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			errs = append(errs, fmt.Errorf("bridge_ws_addr %q must bind a loopback address", c.BridgeWSAddr))
		}
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
