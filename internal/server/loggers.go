package server

import world "tickcraft.ai/internal/sim/world"

type indexSink interface {
	world.TickLogger
	world.AuditLogger
}

// multiTickLogger fans a tick out to the file log and the index. Index
// failures never block the file log.
type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return err
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return err
}
