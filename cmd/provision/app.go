package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"fleet-provisioning/internal/audit"
	auditrepo "fleet-provisioning/internal/audit/repository"
	"fleet-provisioning/internal/config"
	customerrepo "fleet-provisioning/internal/customer/repository"
	"fleet-provisioning/internal/db"
	"fleet-provisioning/internal/health"
	"fleet-provisioning/internal/provisioning/policy"
	"fleet-provisioning/internal/provisioning/service"
	"fleet-provisioning/internal/telemetry"
	telemetryotel "fleet-provisioning/internal/telemetry/otel"
	"fleet-provisioning/internal/telemetry/producer"
	"fleet-provisioning/internal/wialon"
)

// app holds the dependencies shared by every subcommand.
type app struct {
	cfg       *config.Config
	client    *wialon.Client
	conn      *sql.DB
	customers *customerrepo.PostgresRepository
	auditRepo auditrepo.Repository
	policy    *policy.OPAEvaluator
	events    telemetry.EventEmitter
	producer  *producer.KafkaProducer
	providers *telemetryotel.Providers
	emitted   bool
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	a.providers = providers

	opts := []wialon.Option{wialon.WithTimeout(cfg.Timeout())}
	if cfg.WialonRateLimit > 0 {
		opts = append(opts, wialon.WithRateLimit(cfg.WialonRateLimit, cfg.WialonRateBurst))
	}
	a.client = wialon.NewClient(cfg.WialonAPIURL, opts...)

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("db: %w", err)
		}
		a.conn = conn
		a.customers = customerrepo.NewPostgresRepository(conn)
		a.auditRepo = auditrepo.NewPostgresRepository(conn)
	} else {
		log.Println("provision: DATABASE_URL not set; customer records and audit trail disabled")
	}

	a.policy, err = policy.LoadOPAEvaluator(cfg.PolicyFile)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("policy: %w", err)
	}

	a.producer, err = producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("kafka: %w", err)
	}
	fanout := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if a.producer != nil {
		fanout = append(fanout, a.producer)
	}
	a.events = fanout
	return a, nil
}

func (a *app) provisioner() *service.Provisioner {
	opts := []service.Option{
		service.WithPolicy(a.policy),
		service.WithDefaultPlan(a.cfg.WialonDefaultPlan),
		service.WithEventEmitter(a.events),
	}
	if a.customers != nil {
		opts = append(opts,
			service.WithRecorder(a.customers),
			service.WithAuditLogger(audit.NewLogger(a.auditRepo, audit.RunIDFromContext)))
	}
	a.emitted = true
	return service.NewProvisioner(a.client, a.cfg.WialonToken, a.cfg.WialonAdminID, opts...)
}

// auditLogger returns the audit trail for operator commands, or nil without a database.
func (a *app) auditLogger() audit.AuditLogger {
	if a.auditRepo == nil {
		return nil
	}
	return audit.NewLogger(a.auditRepo, audit.RunIDFromContext)
}

func (a *app) checker() *health.Checker {
	c := &health.Checker{Policy: a.policy, Remote: a.client, Token: a.cfg.WialonToken}
	if a.conn != nil {
		c.DB = a.conn
	}
	return c
}

// close releases every dependency. After a provisioning run it first waits for async emits to drain.
func (a *app) close() {
	if a.emitted {
		time.Sleep(telemetry.ShutdownDrainDuration)
	}
	if err := a.producer.Close(); err != nil {
		log.Printf("provision: kafka close: %v", err)
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
	if a.providers != nil && a.providers.Shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.providers.Shutdown(ctx); err != nil {
			log.Printf("provision: telemetry shutdown: %v", err)
		}
	}
}
