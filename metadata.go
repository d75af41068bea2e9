package goaction

import (
	"maps"

	"github.com/davidroman0O/goaction/telemetry"
)

// composeMetadata merges, in increasing precedence, the fixed owner and
// action keys, the owner metadata and the action metadata.
func (s *ActionSet) composeMetadata(ctx Context, a *action) telemetry.Metadata {
	md := telemetry.Metadata{
		telemetry.KeyOwner:  s.owner,
		telemetry.KeyAction: a.name,
	}
	maps.Copy(md, s.callMetadata("owner", s.metadata, ctx, a))
	maps.Copy(md, s.callMetadata("action", a.metadata, ctx, a))
	return md
}

// callMetadata runs fn and returns an empty map if it panics or returns nil.
func (s *ActionSet) callMetadata(level string, fn MetadataFunc, ctx Context, a *action) (md map[string]any) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("%s metadata of %s.%s panicked: %v", level, s.owner, a.name, r)
			md = nil
		}
	}()

	md = fn(ctx)
	if md == nil {
		s.logger.Warn("%s metadata of %s.%s returned nil", level, s.owner, a.name)
	}
	return md
}
