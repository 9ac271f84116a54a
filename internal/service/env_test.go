package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/classify"
	"github.com/fieldlink/feedback-engine/internal/config"
	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/locks"
	"github.com/fieldlink/feedback-engine/internal/service"
	"github.com/fieldlink/feedback-engine/internal/sla"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
)

type stubTaxonomySource struct {
	entries []domain.ReasonTaxonomyEntry
}

func (s *stubTaxonomySource) ListAll(ctx context.Context) ([]domain.ReasonTaxonomyEntry, error) {
	return s.entries, nil
}

// testEnv wires the services over in-memory fakes.
type testEnv struct {
	tickets    *fakeTicketRepo
	messages   *fakeMessageRepo
	queue      *fakeQueueRepo
	alerts     *fakeAlertRepo
	dispatcher *recordingDispatcher
	notifier   *fakeNotifier
	pipeline   *fakeScriptQueue
	business   config.BusinessConfig

	intake      *service.IntakeService
	ticketSvc   *service.TicketService
	aggregation *service.AggregationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	taxRepo := taxonomy.NewRepository(&stubTaxonomySource{entries: []domain.ReasonTaxonomyEntry{
		{Code: "UW-01", Bucket: domain.BucketUnderwriting, DisplayName: "Policy application stalled", DefaultSLAHours: 48},
		{Code: "UW-06", Bucket: domain.BucketUnderwriting, DisplayName: "Endorsement not processed", DefaultSLAHours: 48},
		{Code: "FIN-01", Bucket: domain.BucketFinance, DisplayName: "Commission not paid", DefaultSLAHours: 48},
		{Code: "OPS-01", Bucket: domain.BucketOperations, DisplayName: "No response from agent", DefaultSLAHours: 72},
		{Code: "ENG-04", Bucket: domain.BucketEngagement, DisplayName: "Considering leaving the network", DefaultSLAHours: 24},
	}}, zap.NewNop())
	require.NoError(t, taxRepo.Load(context.Background()))

	env := &testEnv{
		tickets:    newFakeTicketRepo(),
		messages:   newFakeMessageRepo(),
		queue:      newFakeQueueRepo(),
		alerts:     newFakeAlertRepo(),
		dispatcher: &recordingDispatcher{},
		notifier:   &fakeNotifier{},
		pipeline:   &fakeScriptQueue{accept: true},
		business: config.BusinessConfig{
			TicketPrefix:          "FBK",
			DedupWindowDays:       30,
			AggregationThreshold:  5,
			AggregationWindowDays: 30,
			SLAWarningFraction:    0.25,
		},
	}

	logger := zap.NewNop()
	calc := sla.NewCalculator(env.business.SLAWarningFraction)

	env.aggregation = service.NewAggregationService(
		env.tickets, env.alerts, taxRepo, locks.NoopLocker{}, env.dispatcher, logger, env.business)

	env.intake = service.NewIntakeService(service.IntakeDependencies{
		TicketRepo:  env.tickets,
		MessageRepo: env.messages,
		QueueRepo:   env.queue,
		CounterRepo: &fakeCounter{},
		Taxonomy:    taxRepo,
		Classifier:  classify.New(taxRepo, nil, logger),
		SLA:         calc,
		Locker:      locks.NoopLocker{},
		Aggregator:  env.aggregation,
		Dispatcher:  env.dispatcher,
		Logger:      logger,
		Business:    env.business,
	})

	env.ticketSvc = service.NewTicketService(service.TicketDependencies{
		TicketRepo:  env.tickets,
		MessageRepo: env.messages,
		QueueRepo:   env.queue,
		Taxonomy:    taxRepo,
		SLA:         calc,
		Pipeline:    env.pipeline,
		Notifier:    env.notifier,
		Dispatcher:  env.dispatcher,
		Logger:      logger,
	})
	return env
}
