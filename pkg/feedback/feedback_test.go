// Copyright 2025 Certen Protocol

package feedback

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// recordingSink appends every event it receives.
type recordingSink struct {
	events []Event
}

func (s *recordingSink) SendEvent(event Event) {
	s.events = append(s.events, event)
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := NewChannelSink(1)
	sink.SendEvent(Event{Kind: EventChainValidationStarted, ChainID: "a"})
	sink.SendEvent(Event{Kind: EventChainValidated, ChainID: "a"})

	got := <-sink.Events()
	if got.Kind != EventChainValidationStarted {
		t.Fatalf("buffered event kind = %s, want ChainValidationStarted", got.Kind)
	}
	select {
	case e := <-sink.Events():
		t.Fatalf("expected second event to be dropped, got %s", e.Kind)
	default:
	}
}

func TestMultiSinkPreservesOrderAcrossSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	multi := NewMultiSink(a, nil, b)

	events := []Event{
		{Kind: EventChainValidationStarted, ChainID: "c"},
		{Kind: EventCertificateValidated, ChainID: "c", CertificateHash: "h1"},
		{Kind: EventChainValidated, ChainID: "c"},
	}
	for _, e := range events {
		multi.SendEvent(e)
	}

	for _, s := range []*recordingSink{a, b} {
		if len(s.events) != len(events) {
			t.Fatalf("sink received %d events, want %d", len(s.events), len(events))
		}
		for i := range events {
			if s.events[i] != events[i] {
				t.Fatalf("event %d = %+v, want %+v", i, s.events[i], events[i])
			}
		}
	}
}

func TestMetricsSinkCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewMetricsSink(reg)
	if err != nil {
		t.Fatalf("new metrics sink: %v", err)
	}

	sink.SendEvent(Event{Kind: EventChainValidationStarted, ChainID: "c"})
	sink.SendEvent(Event{Kind: EventCertificateValidated, ChainID: "c", CertificateHash: "h1"})
	sink.SendEvent(Event{Kind: EventCertificateValidated, ChainID: "c", CertificateHash: "h2"})
	sink.SendEvent(Event{Kind: EventChainValidated, ChainID: "c"})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			counts[fam.GetName()] = m.GetCounter().GetValue()
		}
	}
	want := map[string]float64{
		"certen_chain_validations_started_total":   1,
		"certen_certificates_validated_total":      2,
		"certen_chain_validations_completed_total": 1,
	}
	for name, value := range want {
		if counts[name] != value {
			t.Fatalf("%s = %v, want %v", name, counts[name], value)
		}
	}
}
