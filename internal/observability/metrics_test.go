package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.SetMissionsStored(3)
	c.IncMutation("create")
	c.IncMutation("create")
	c.IncPersistenceFailure()
	c.IncSimulationStep()
	c.IncTransition("running")
	c.SetSimulationsActive(2)

	if got := testutil.ToFloat64(c.MissionsStored); got != 3 {
		t.Fatalf("missions_stored = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.MissionMutations.WithLabelValues("create")); got != 2 {
		t.Fatalf("mission_mutations_total{op=create} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.PersistenceFailures); got != 1 {
		t.Fatalf("mission_persistence_failures_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.SimulationTransition.WithLabelValues("running")); got != 1 {
		t.Fatalf("simulation_transitions_total{status=running} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.SimulationsActive); got != 2 {
		t.Fatalf("simulations_active = %v, want 2", got)
	}
}

func TestCollectorDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	if _, err := NewCollector(reg); err == nil {
		t.Fatal("expected error registering collector twice")
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.SetMissionsStored(1)
	c.IncMutation("delete")
	c.IncPersistenceFailure()
	c.IncSimulationStep()
	c.IncTransition("idle")
	c.SetSimulationsActive(0)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.IncSimulationStep()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "simulation_steps_total 1") {
		t.Fatalf("metrics output missing simulation_steps_total:\n%s", body)
	}
}
