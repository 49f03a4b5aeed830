// Package config loads client and module settings and builds loggers from
// them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// Transport names.
const (
	TransportMem  = "mem"
	TransportQUIC = "quic"
	TransportGRPC = "grpc"
)

// Settings describes how a client reaches its module, and how a module
// listens.
type Settings struct {
	Transport   string        `json:"transport" validate:"required,oneof=mem quic grpc"`
	Address     string        `json:"address" validate:"required_unless=Transport mem"`
	MTU         int           `json:"mtu" validate:"gte=64,lte=65536"`
	ClientID    uint8         `json:"client_id" validate:"gte=1,lte=15"`
	ServerID    uint32        `json:"server_id"`
	Compress    bool          `json:"compress"`
	PinSHA256   string        `json:"pin_sha256" validate:"omitempty,hexadecimal,len=64"`
	DialTimeout time.Duration `json:"dial_timeout" validate:"gte=0"`
	Log         LogSettings   `json:"log"`
}

// Default returns settings for an in-process module with console logging.
func Default() Settings {
	return Settings{
		Transport:   TransportMem,
		MTU:         protocol.DefaultDataLen,
		ClientID:    1,
		DialTimeout: 5 * time.Second,
		Log: LogSettings{
			LogLevel: LogLevelInfo,
			LogType:  LogTypeConsole,
		},
	}
}

// Validate checks that all fields in Settings are valid
func (s *Settings) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for Settings: %w", err)
	}
	if s.MTU > protocol.MaxFramePayload {
		return fmt.Errorf("mtu %d exceeds frame limit %d", s.MTU, protocol.MaxFramePayload)
	}
	return s.Log.Validate()
}

// Load reads a JSON settings file over Default and validates the result.
func Load(path string) (Settings, error) {
	s := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
