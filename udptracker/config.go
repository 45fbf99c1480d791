package udptracker

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config for a Session. The zero value is not usable; start from
// DefaultConfig and override fields as needed.
type Config struct {
	// Network to open tracker sockets on: "udp4", "udp6" or "udp".
	// Announce replies are decoded as IPv6 peer lists on "udp6".
	Network string `yaml:"network"`
	// Number of peers requested in an announce.
	NumWant int `yaml:"numwant"`
	// Upper bound on peers per announce reply, used to size receive buffers.
	MaxNumWant int `yaml:"max_numwant"`
	// Time to wait for a whole exchange, connect and operation reply
	// together, before the request is abandoned.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Grace given to in-flight requests on Close before their sockets are
	// forced shut.
	DestroyTimeout time.Duration `yaml:"destroy_timeout"`
	// Announce period in effect until the tracker supplies an interval.
	DefaultAnnounceInterval time.Duration `yaml:"default_announce_interval"`
}

// DefaultConfig for Session.
var DefaultConfig = Config{
	Network:                 "udp4",
	NumWant:                 50,
	MaxNumWant:              1000,
	RequestTimeout:          15 * time.Second,
	DestroyTimeout:          time.Second,
	DefaultAnnounceInterval: 30 * time.Minute,
}

// LoadConfig reads values over DefaultConfig from a YAML file.
// A missing file leaves the defaults untouched.
func LoadConfig(filename string) (*Config, error) {
	c := DefaultConfig
	b, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
