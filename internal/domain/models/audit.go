package models

import "time"

// AuditAction is derived from the before/after pair, never supplied by callers.
type AuditAction string

const (
	ActionCreate AuditAction = "CREATE"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// Entity types recorded in history.
const (
	EntityOrder        = "ORDER"
	EntityCartQuote    = "CART_QUOTE"
	EntityProduct      = "PRODUCT"
	EntityGrade        = "GRADE"
	EntityExchangeRate = "EXCHANGE_RATE"
)

// FieldChange describes one changed field.
type FieldChange struct {
	Field string `bson:"field" json:"field"`
	From  any    `bson:"from" json:"from"`
	To    any    `bson:"to" json:"to"`
}

// AuditEntry is an immutable, append-only history record.
type AuditEntry struct {
	ID        string        `bson:"_id" json:"id"`
	Path      string        `bson:"path" json:"path"`
	Entity    string        `bson:"entity" json:"entity"`
	Action    AuditAction   `bson:"action" json:"action"`
	Before    any           `bson:"before" json:"before"`
	After     any           `bson:"after" json:"after"`
	Changes   []FieldChange `bson:"changes" json:"changes"`
	Actor     string        `bson:"actor" json:"actor"`
	ActorUID  string        `bson:"actor_uid,omitempty" json:"actorUid,omitempty"`
	ActorRole ActorRole     `bson:"actor_role" json:"actorRole"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
}

// ActorRole records how the actor was resolved.
type ActorRole string

const (
	RoleAdmin  ActorRole = "admin"
	RoleUser   ActorRole = "user"
	RoleSystem ActorRole = "system"
)

// SystemActor is the sentinel used when no identity is known.
const SystemActor = "System"

// Identity is a user identity as seen by the engine.
type Identity struct {
	Email string `json:"email"`
	UID   string `json:"uid,omitempty"`
}

func (i *Identity) usable() bool {
	return i != nil && i.Email != ""
}

// ActorContext is passed explicitly to every mutating operation.
// Cached holds an admin profile that may act without a live session.
type ActorContext struct {
	Cached  *Identity
	Session *Identity
}

// Actor is the resolved identity written into audit entries.
type Actor struct {
	Email string
	UID   string
	Role  ActorRole
}

// Resolve applies the precedence cached identity, then session, then the System sentinel.
func (a ActorContext) Resolve() Actor {
	switch {
	case a.Cached.usable():
		return Actor{Email: a.Cached.Email, UID: a.Cached.UID, Role: RoleAdmin}
	case a.Session.usable():
		return Actor{Email: a.Session.Email, UID: a.Session.UID, Role: RoleUser}
	default:
		return Actor{Email: SystemActor, Role: RoleSystem}
	}
}
