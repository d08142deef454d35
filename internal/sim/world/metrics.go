package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Devices      int            `json:"devices"`
	DeviceKinds  map[string]int `json:"device_kinds,omitempty"`
	Players      int            `json:"players"`
	Mobs         int            `json:"mobs"`
	ItemEntities int            `json:"item_entities"`
	Scheduled    int            `json:"scheduled"`
	Observers    int            `json:"observers"`

	QueueDepths QueueDepths `json:"queue_depths"`

	CommandsApplied int     `json:"commands_applied"`
	Events          int     `json:"events"`
	StepMS          float64 `json:"step_ms"`

	Raining   bool    `json:"raining"`
	TimeOfDay float64 `json:"time_of_day"`
}

type QueueDepths struct {
	Commands      int `json:"commands"`
	ObserverJoin  int `json:"observer_join"`
	ObserverLeave int `json:"observer_leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) storeMetrics(nextTick uint64, stepMS float64, applied int) {
	kinds := map[string]int{}
	for _, d := range w.devices {
		kinds[d.Kind()]++
	}
	w.metrics.Store(WorldMetrics{
		Tick:         nextTick,
		Devices:      len(w.devices),
		DeviceKinds:  kinds,
		Players:      len(w.players),
		Mobs:         len(w.mobs),
		ItemEntities: len(w.items),
		Scheduled:    w.scheduled.Len(),
		Observers:    len(w.observers),
		QueueDepths: QueueDepths{
			Commands:      len(w.cmds),
			ObserverJoin:  len(w.observerJoin),
			ObserverLeave: len(w.observerLeave),
		},
		CommandsApplied: applied,
		Events:          len(w.lastEvents),
		StepMS:          stepMS,
		Raining:         w.raining,
		TimeOfDay:       w.timeOfDay(nextTick),
	})
}
