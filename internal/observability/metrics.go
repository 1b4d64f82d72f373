package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector збирає метрики сховища місій та симуляцій.
// Усі методи можна викликати на nil *Collector.
type Collector struct {
	gatherer prometheus.Gatherer

	MissionsStored       prometheus.Gauge
	MissionMutations     *prometheus.CounterVec
	PersistenceFailures  prometheus.Counter
	SimulationsActive    prometheus.Gauge
	SimulationSteps      prometheus.Counter
	SimulationTransition *prometheus.CounterVec
}

// NewCollector реєструє метрики в переданому registerer
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		MissionsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "missions_stored",
			Help: "Number of missions currently held by the mission store.",
		}),
		MissionMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mission_mutations_total",
			Help: "Committed mission store mutations by operation.",
		}, []string{"op"}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mission_persistence_failures_total",
			Help: "Failed writes of the mission collection to durable storage.",
		}),
		SimulationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulations_active",
			Help: "Number of open simulation sessions.",
		}),
		SimulationSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulation_steps_total",
			Help: "Waypoints reached by simulated drones.",
		}),
		SimulationTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulation_transitions_total",
			Help: "Simulation state machine transitions by target status.",
		}, []string{"status"}),
	}

	for name, col := range map[string]prometheus.Collector{
		"missions_stored":                    c.MissionsStored,
		"mission_mutations_total":            c.MissionMutations,
		"mission_persistence_failures_total": c.PersistenceFailures,
		"simulations_active":                 c.SimulationsActive,
		"simulation_steps_total":             c.SimulationSteps,
		"simulation_transitions_total":       c.SimulationTransition,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}

	return c, nil
}

// Handler віддає зареєстровані метрики у форматі Prometheus
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) SetMissionsStored(n int) {
	if c == nil {
		return
	}
	c.MissionsStored.Set(float64(n))
}

func (c *Collector) IncMutation(op string) {
	if c == nil {
		return
	}
	c.MissionMutations.WithLabelValues(op).Inc()
}

func (c *Collector) IncPersistenceFailure() {
	if c == nil {
		return
	}
	c.PersistenceFailures.Inc()
}

func (c *Collector) SetSimulationsActive(n int) {
	if c == nil {
		return
	}
	c.SimulationsActive.Set(float64(n))
}

func (c *Collector) IncSimulationStep() {
	if c == nil {
		return
	}
	c.SimulationSteps.Inc()
}

func (c *Collector) IncTransition(status string) {
	if c == nil {
		return
	}
	c.SimulationTransition.WithLabelValues(status).Inc()
}
