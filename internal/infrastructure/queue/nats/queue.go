package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/infrastructure/resilience"
)

const workerQueueGroup = "analysis-workers"

type Queue struct {
	conn         *nats.Conn
	subject      string
	executor     *resilience.Executor
	drainTimeout time.Duration
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// DrainTimeout bounds how long shutdown waits for delivered jobs.
	DrainTimeout         time.Duration
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	drainTimeout := options.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 30 * time.Second
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("document-explainer"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:         conn,
		subject:      subject,
		executor:     options.ResilienceExecutor,
		drainTimeout: drainTimeout,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAnalysisRequested(ctx context.Context, job domain.AnalysisJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeAnalysisRequested delivers jobs to handler until ctx is done, then
// drains the subscription and waits for delivered jobs to finish. Workers
// share one queue group so each job is handled once.
//
// Core NATS does not redeliver, so a delivered job always runs to a terminal
// state: handlers get a context that shutdown does not cancel and are
// expected to bound it themselves.
func (q *Queue) SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisJob) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		deliverJob(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	slog.Info("analysis_subscription_draining", "subject", q.subject)
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := waitDrained(sub.IsValid, q.drainTimeout, 50*time.Millisecond); err != nil {
		return err
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func deliverJob(ctx context.Context, data []byte, handler func(context.Context, domain.AnalysisJob) error) {
	job, err := decodeJob(data)
	if err != nil {
		slog.Error("analysis_job_decode_failed", "error", err, "payload_bytes", len(data))
		return
	}

	if err := handler(context.WithoutCancel(ctx), job); err != nil {
		slog.Error("analysis_job_failed", "contract_id", job.ContractID, "error", err)
	}
}

// waitDrained polls until active reports false. Drain is asynchronous and
// the subscription stays valid until its last delivered message returns.
func waitDrained(active func() bool, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for active() {
		if time.Now().After(deadline) {
			return fmt.Errorf("nats drain: jobs still running after %s", timeout)
		}
		time.Sleep(interval)
	}
	return nil
}

func encodeJob(job domain.AnalysisJob) ([]byte, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis job: %w", err)
	}
	return payload, nil
}

func decodeJob(data []byte) (domain.AnalysisJob, error) {
	var job domain.AnalysisJob
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.AnalysisJob{}, fmt.Errorf("unmarshal analysis job: %w", err)
	}
	if job.ContractID == "" || job.UserID == "" {
		return domain.AnalysisJob{}, errors.New("analysis job without contract or user id")
	}
	return job, nil
}
