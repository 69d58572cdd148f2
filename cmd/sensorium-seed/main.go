// Command sensorium-seed writes a handful of synthetic sensor
// observations into Redis so a sensorium-node can be exercised without
// a real sensor fleet. It is not part of the engine itself: ingestion
// is the host's job, and this is the smallest possible host for manual
// testing.
//
// Grounded structurally on cmd/fake-provider (flag-only main, no
// config file) and behaviorally on the offset/drift/jitter simulation
// in examples/synthetic_sensors.py: each synthetic sensor observes a
// shared true event time through its own inverse clock mapping,
// t_local = (t_global - offset) / drift, plus Gaussian jitter.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/afeldman/sensorium/model"
	"github.com/afeldman/sensorium/store"
)

var (
	redisAddr      = flag.String("addr", "localhost:6379", "redis address")
	redisPassword  = flag.String("password", "", "redis password")
	redisDB        = flag.Int("db", 0, "redis database index")
	eventTime      = flag.Float64("event-time", 10.0, "true global time of the simulated event, seconds")
	observationTTL = flag.Duration("ttl", time.Minute, "TTL for written observation keys")
)

// syntheticSensor mirrors SyntheticSensor from the Python reference:
// offset and drift describe the sensor's clock relative to global
// time, jitter is the standard deviation of its measurement noise.
type syntheticSensor struct {
	sensorID   string
	sensorType string
	offset     float64
	drift      float64
	jitter     float64
}

var fleet = []syntheticSensor{
	{sensorID: "camera-1", sensorType: "camera", offset: 0.05, drift: 1.0001, jitter: 0.01},
	{sensorID: "imu-1", sensorType: "imu", offset: -0.02, drift: 0.9999, jitter: 0.02},
	{sensorID: "mic-1", sensorType: "microphone", offset: 0.01, drift: 1.0, jitter: 0.005},
}

func main() {
	flag.Parse()

	redisStore := store.NewRedisStore(store.RedisOptions{
		Addr:     *redisAddr,
		Password: *redisPassword,
		DB:       *redisDB,
	})
	defer redisStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisStore.Ping(ctx); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}

	fmt.Printf("simulating event at true global time t=%.6f\n", *eventTime)

	for _, sensor := range fleet {
		obs := simulateObservation(sensor, *eventTime)

		writeCtx, writeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		key := store.ObservationKey(obs.SensorID, obs.LocalTimestamp)
		if err := redisStore.SetJSON(writeCtx, key, obs, *observationTTL); err != nil {
			writeCancel()
			log.Fatalf("write observation %s: %v", sensor.sensorID, err)
		}
		writeCancel()

		fmt.Printf("  %-10s t_local=%.6f sigma=%.4f key=%s\n", sensor.sensorID, obs.LocalTimestamp, sensor.jitter, key)

		stateCtx, stateCancel := context.WithTimeout(context.Background(), 5*time.Second)
		stateKey := store.TimeOffsetKey(sensor.sensorID)
		if err := redisStore.SetJSON(stateCtx, stateKey, model.DefaultTimeOffsetModel(), 0); err != nil {
			stateCancel()
			log.Fatalf("seed offset state %s: %v", sensor.sensorID, err)
		}
		stateCancel()
	}

	fmt.Println("done. run sensorium-node and inspect sync:group:* keys.")
}

// simulateObservation inverts the sensor's global-to-local mapping to
// produce what that sensor would have recorded for trueGlobalTime, then
// adds Gaussian measurement noise with standard deviation sensor.jitter.
func simulateObservation(sensor syntheticSensor, trueGlobalTime float64) model.Observation {
	localTimestamp := (trueGlobalTime-sensor.offset)/sensor.drift + rand.NormFloat64()*sensor.jitter

	return model.Observation{
		SensorID:       sensor.sensorID,
		SensorType:     sensor.sensorType,
		LocalTimestamp: localTimestamp,
		Covariance:     sensor.jitter * sensor.jitter,
		Payload:        fmt.Sprintf("mem://%s/%d", sensor.sensorID, int64(localTimestamp*1e9)),
	}
}
