package main

import (
	"fmt"
	"io"

	"airfryer.ai/internal/persistence/indexdb"
	"airfryer.ai/internal/sim/planet"
	"airfryer.ai/internal/transport/ws"
)

type metricsSnapshot struct {
	PlanetID         string
	Planet           planet.Stats
	Transport        ws.Stats
	Observers        int
	ObserverDropped  uint64
	SnapshotsWritten uint64
	Index            *indexdb.Stats
}

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(w io.Writer, m metricsSnapshot) {
	id := m.PlanetID

	fmt.Fprintf(w, "# HELP airfryer_planet_seq Last journal sequence number.\n")
	fmt.Fprintf(w, "# TYPE airfryer_planet_seq gauge\n")
	fmt.Fprintf(w, "airfryer_planet_seq{planet=%q} %d\n", id, m.Planet.Seq)

	fmt.Fprintf(w, "# HELP airfryer_planet_messages_total Messages by disposition.\n")
	fmt.Fprintf(w, "# TYPE airfryer_planet_messages_total counter\n")
	fmt.Fprintf(w, "airfryer_planet_messages_total{planet=%q,result=%q} %d\n", id, "handled", m.Planet.Handled)
	fmt.Fprintf(w, "airfryer_planet_messages_total{planet=%q,result=%q} %d\n", id, "ignored", m.Planet.Ignored)
	fmt.Fprintf(w, "airfryer_planet_messages_total{planet=%q,result=%q} %d\n", id, "undelivered", m.Planet.Undelivered)
	fmt.Fprintf(w, "airfryer_planet_messages_total{planet=%q,result=%q} %d\n", id, "refused", m.Planet.Refused)

	fmt.Fprintf(w, "# HELP airfryer_planet_asteroids_total Asteroids handled by outcome.\n")
	fmt.Fprintf(w, "# TYPE airfryer_planet_asteroids_total counter\n")
	fmt.Fprintf(w, "airfryer_planet_asteroids_total{planet=%q,outcome=%q} %d\n", id, "defended", m.Planet.Asteroids-m.Planet.Undefended)
	fmt.Fprintf(w, "airfryer_planet_asteroids_total{planet=%q,outcome=%q} %d\n", id, "undefended", m.Planet.Undefended)

	fmt.Fprintf(w, "# HELP airfryer_planet_snapshots_total Snapshots emitted by the loop and written to disk.\n")
	fmt.Fprintf(w, "# TYPE airfryer_planet_snapshots_total counter\n")
	fmt.Fprintf(w, "airfryer_planet_snapshots_total{planet=%q,stage=%q} %d\n", id, "emitted", m.Planet.SnapshotsSent)
	fmt.Fprintf(w, "airfryer_planet_snapshots_total{planet=%q,stage=%q} %d\n", id, "written", m.SnapshotsWritten)

	fmt.Fprintf(w, "# HELP airfryer_transport_sessions Connected sessions by role.\n")
	fmt.Fprintf(w, "# TYPE airfryer_transport_sessions gauge\n")
	fmt.Fprintf(w, "airfryer_transport_sessions{planet=%q,role=%q} %d\n", id, "orchestrator", m.Transport.Orchestrators)
	fmt.Fprintf(w, "airfryer_transport_sessions{planet=%q,role=%q} %d\n", id, "explorer", m.Transport.Explorers)
	fmt.Fprintf(w, "airfryer_transport_sessions{planet=%q,role=%q} %d\n", id, "observer", m.Observers)

	fmt.Fprintf(w, "# HELP airfryer_transport_mailboxes Explorer reply mailboxes held by the hub.\n")
	fmt.Fprintf(w, "# TYPE airfryer_transport_mailboxes gauge\n")
	fmt.Fprintf(w, "airfryer_transport_mailboxes{planet=%q} %d\n", id, m.Transport.Mailboxes)

	fmt.Fprintf(w, "# HELP airfryer_transport_events_total Orchestrator events by delivery result.\n")
	fmt.Fprintf(w, "# TYPE airfryer_transport_events_total counter\n")
	fmt.Fprintf(w, "airfryer_transport_events_total{planet=%q,result=%q} %d\n", id, "sent", m.Transport.EventsSent)
	fmt.Fprintf(w, "airfryer_transport_events_total{planet=%q,result=%q} %d\n", id, "dropped", m.Transport.EventsDropped)

	fmt.Fprintf(w, "# HELP airfryer_transport_frames_rejected_total Inbound frames answered with ERROR.\n")
	fmt.Fprintf(w, "# TYPE airfryer_transport_frames_rejected_total counter\n")
	fmt.Fprintf(w, "airfryer_transport_frames_rejected_total{planet=%q} %d\n", id, m.Transport.FramesRejected)

	fmt.Fprintf(w, "# HELP airfryer_observer_dropped_total Journal entries dropped for slow observers.\n")
	fmt.Fprintf(w, "# TYPE airfryer_observer_dropped_total counter\n")
	fmt.Fprintf(w, "airfryer_observer_dropped_total{planet=%q} %d\n", id, m.ObserverDropped)

	if m.Index == nil {
		return
	}
	fmt.Fprintf(w, "# HELP airfryer_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(w, "# TYPE airfryer_index_queue_depth gauge\n")
	fmt.Fprintf(w, "airfryer_index_queue_depth{planet=%q} %d\n", id, m.Index.QueueDepth)

	fmt.Fprintf(w, "# HELP airfryer_index_queue_capacity Index writer queue capacity.\n")
	fmt.Fprintf(w, "# TYPE airfryer_index_queue_capacity gauge\n")
	fmt.Fprintf(w, "airfryer_index_queue_capacity{planet=%q} %d\n", id, m.Index.QueueCapacity)

	fmt.Fprintf(w, "# HELP airfryer_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(w, "# TYPE airfryer_index_dropped_total counter\n")
	fmt.Fprintf(w, "airfryer_index_dropped_total{planet=%q,kind=%q} %d\n", id, "entry", m.Index.DropEntryTotal)
	fmt.Fprintf(w, "airfryer_index_dropped_total{planet=%q,kind=%q} %d\n", id, "snapshot", m.Index.DropSnapshotTotal)

	fmt.Fprintf(w, "# HELP airfryer_index_write_errors_total Failed index transactions.\n")
	fmt.Fprintf(w, "# TYPE airfryer_index_write_errors_total counter\n")
	fmt.Fprintf(w, "airfryer_index_write_errors_total{planet=%q} %d\n", id, m.Index.WriteErrorTotal)
}
