//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/storm-energy-impact/internal/adapter/kafka"
	"github.com/couchcryptid/storm-energy-impact/internal/climatology"
	"github.com/couchcryptid/storm-energy-impact/internal/config"
	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/couchcryptid/storm-energy-impact/internal/observability"
	"github.com/couchcryptid/storm-energy-impact/internal/pipeline"
)

const testSinkTopic = "test-energy-impact"

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("energy-impact-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// testGrid is a single-cell daily grid for 2000-2003 with a cold February
// 2003 event window.
func testGrid(t *testing.T) *domain.Grid {
	t.Helper()
	var times []time.Time
	var t2 []float64
	for d := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC); d.Year() < 2004; d = d.AddDate(0, 0, 1) {
		times = append(times, d)
		v := 283.15 + float64(d.Year()%3)
		if d.Year() == 2003 && d.Month() == time.February && d.Day() >= 13 && d.Day() <= 17 {
			v = 263.15
		}
		t2 = append(t2, v)
	}
	g, err := domain.NewGrid(times, []float64{30}, []float64{-97}, map[domain.Variable]domain.Field{
		domain.VarTemperature2m: {Units: "K", Values: t2},
	})
	require.NoError(t, err)
	return g
}

// TestPipelinePublishesReport runs a full analysis and reads every record back
// from the sink topic.
func TestPipelinePublishesReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	facilities := []domain.Facility{
		{ID: "metro-austin", Name: "Austin", Kind: domain.KindLoad, Region: "South Central",
			Coordinates: domain.Coordinates{Lat: 30, Lon: -97}, Load: &domain.LoadAttrs{Population: 2_283_371}},
		{ID: "eia-far", Name: "Far", Kind: domain.KindWind,
			Coordinates: domain.Coordinates{Lat: 45, Lon: -97}, Wind: &domain.WindAttrs{CapacityMW: 10}},
	}
	settings := pipeline.Settings{
		EventName:      "Integration Freeze",
		Event:          domain.TimeRange{Start: time.Date(2003, 2, 13, 0, 0, 0, 0, time.UTC), End: time.Date(2003, 2, 17, 23, 59, 59, 0, time.UTC)},
		Baseline:       climatology.YearWindow{Start: 2000, End: 2002},
		MinSamples:     2,
		HDDBase:        18,
		PublishRetries: 3,
		RetryBackoff:   500 * time.Millisecond,
	}

	p := pipeline.New(testGrid(t), facilities, settings, writer, discardLogger(), observability.NewMetricsForTesting())
	report, err := p.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, p.CheckReadiness(ctx))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testSinkTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := make(map[string]kafkago.Message)
	for range report.Records() {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")
		got[string(msg.Key)] = msg
	}

	require.Contains(t, got, "metro-austin")
	require.Contains(t, got, "fleet:hdd")
	require.Contains(t, got, "region:South Central:hdd")
	require.Contains(t, got, "failure:eia-far")

	headers := make(map[string]string)
	for _, h := range got["metro-austin"].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, kafka.RecordFacility, headers["record_type"])
	assert.Equal(t, report.RunID.String(), headers["run_id"])

	var facility pipeline.FacilityResult
	require.NoError(t, json.Unmarshal(got["metro-austin"].Value, &facility))
	require.Len(t, facility.Metrics, 1)
	assert.Equal(t, "hdd", facility.Metrics[0].Metric)
	assert.Len(t, facility.Metrics[0].Comparison.Points, 5)

	var failure pipeline.FacilityFailure
	require.NoError(t, json.Unmarshal(got["failure:eia-far"].Value, &failure))
	assert.Equal(t, "out_of_bounds", failure.Reason)
}
