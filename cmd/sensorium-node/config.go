package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fileConfig is the on-disk shape of the node's JSON config file. Lines
// whose first non-whitespace character is '#' are stripped before
// parsing, matching the gateway's SMS config convention.
type fileConfig struct {
	NodeID             string  `json:"nodeId"`
	RedisAddr          string  `json:"redisAddr"`
	RedisPassword      string  `json:"redisPassword"`
	RedisDB            int     `json:"redisDb"`
	HeartbeatSeconds   int     `json:"heartbeatSeconds"`
	ObservationSeconds int     `json:"observationSeconds"`
	BucketMilliseconds int64   `json:"bucketMilliseconds"`
	DriftLearningRate  float64 `json:"driftLearningRate"`
	TickMilliseconds   int64   `json:"tickMilliseconds"`
}

func loadConfig(path string) (fileConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return fileConfig{}, err
	}
	defer file.Close()

	var filtered bytes.Buffer
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		filtered.WriteString(line)
		filtered.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return fileConfig{}, err
	}

	dec := json.NewDecoder(&filtered)
	dec.DisallowUnknownFields()
	var cfg fileConfig
	if err := dec.Decode(&cfg); err != nil {
		return fileConfig{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fileConfig{}, errors.New("config has trailing data")
	}

	cfg.NodeID = strings.TrimSpace(cfg.NodeID)
	if cfg.NodeID == "" {
		cfg.NodeID = "node-" + uuid.NewString()[:8]
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return fileConfig{}, errors.New("redisAddr is required")
	}
	if cfg.HeartbeatSeconds <= 0 {
		cfg.HeartbeatSeconds = 5
	}
	if cfg.ObservationSeconds <= 0 {
		cfg.ObservationSeconds = 300
	}
	if cfg.BucketMilliseconds <= 0 {
		cfg.BucketMilliseconds = 100
	}
	if cfg.DriftLearningRate <= 0 {
		cfg.DriftLearningRate = 1e-4
	}
	if cfg.TickMilliseconds <= 0 {
		cfg.TickMilliseconds = 200
	}

	return cfg, nil
}

func (c fileConfig) heartbeatTTL() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

func (c fileConfig) observationTTL() time.Duration {
	return time.Duration(c.ObservationSeconds) * time.Second
}

func (c fileConfig) tickInterval() time.Duration {
	return time.Duration(c.TickMilliseconds) * time.Millisecond
}
