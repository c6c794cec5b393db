package telemetry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/telegraph-host/media-gateway/internal/store"
)

// Rand is the sampling source. Production uses math/rand; tests inject a
// seeded or scripted source to verify the compensation arithmetic.
type Rand interface {
	Float64() float64
}

// Sampler records access telemetry off the response path. Only a p-fraction
// of events reach the relational store; each recorded event is compensated
// by 1/p so the accumulated estimates stay unbiased.
type Sampler struct {
	store *store.Store
	rate  float64
	rnd   Rand
	now   func() time.Time
	log   *logrus.Entry

	queue     chan string
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewSampler(logger *logrus.Logger, st *store.Store, rate float64, queueSize int) *Sampler {
	return &Sampler{
		store: st,
		rate:  rate,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
		log:   logger.WithField("component", "telemetry"),
		queue: make(chan string, queueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// WithRand substitutes the sampling source.
func (s *Sampler) WithRand(rnd Rand) *Sampler {
	s.rnd = rnd
	return s
}

// WithClock substitutes the clock used to bucket daily stats.
func (s *Sampler) WithClock(now func() time.Time) *Sampler {
	s.now = now
	return s
}

// Start launches the background worker consuming queued events.
func (s *Sampler) Start() {
	go s.run()
}

// Close stops accepting events, drains what is already queued and waits for
// the worker to finish.
func (s *Sampler) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
}

// RecordAccess enqueues one access event. It never blocks and never fails
// from the caller's point of view; a full queue drops the event.
func (s *Sampler) RecordAccess(url string) {
	select {
	case <-s.quit:
	case s.queue <- url:
	default:
		s.log.WithField("url", url).Debug("Telemetry queue full, dropping event")
	}
}

func (s *Sampler) run() {
	defer close(s.done)
	for {
		select {
		case url := <-s.queue:
			s.record(url)
		case <-s.quit:
			for {
				select {
				case url := <-s.queue:
					s.record(url)
				default:
					return
				}
			}
		}
	}
}

// record applies one sampled, compensated delta. Failures are logged and
// swallowed; telemetry must never surface to a serving request.
func (s *Sampler) record(url string) {
	if s.rnd.Float64() >= s.rate {
		return
	}
	factor := 1 / s.rate

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	size, err := s.store.MediaSize(ctx, url)
	if err != nil {
		s.log.WithError(err).WithField("url", url).Warn("Media size lookup failed")
		size = 0
	}

	if err := s.store.AddViews(ctx, url, factor); err != nil {
		s.log.WithError(err).WithField("url", url).Warn("View accumulator update failed")
	}

	date := s.now().UTC().Format("2006-01-02")
	if err := s.store.AddDailyStat(ctx, date, factor, float64(size)*factor, factor); err != nil {
		s.log.WithError(err).WithField("date", date).Warn("Daily stat upsert failed")
	}
}
