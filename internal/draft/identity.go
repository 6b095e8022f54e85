package draft

// IdentityKind tags which kind of key an Identity carries.
type IdentityKind int

const (
	// KindNone is the zero Identity.
	KindNone IdentityKind = iota
	// KindRoute is a server-assigned route.
	KindRoute
	// KindTemporary is a locally generated identifier.
	KindTemporary
)

// Identity is the key under which a draft is addressed: Route(r) or Temporary(t).
type Identity struct {
	kind  IdentityKind
	value string
}

// Route returns a route identity.
func Route(route string) Identity {
	return Identity{kind: KindRoute, value: route}
}

// Temporary returns a temporary identity.
func Temporary(id string) Identity {
	return Identity{kind: KindTemporary, value: id}
}

// Kind reports the identity tag.
func (i Identity) Kind() IdentityKind { return i.kind }

// IsRoute reports whether the identity is a server route.
func (i Identity) IsRoute() bool { return i.kind == KindRoute }

// IsZero reports whether no identity could be resolved.
func (i Identity) IsZero() bool { return i.kind == KindNone || i.value == "" }

// Value returns the raw route or temporary id.
func (i Identity) Value() string { return i.value }

// String returns the storage key form; routes and temporary ids never overlap
// because routes start with "/" and temporary ids with TempPrefix.
func (i Identity) String() string { return i.value }

// ParseIdentity is the inverse of String.
func ParseIdentity(s string) Identity {
	switch {
	case s == "":
		return Identity{}
	case s[0] == '/':
		return Route(s)
	default:
		return Temporary(s)
	}
}

// ResolveIdentity returns the draft's identity: its route, else its stable id,
// else its temporary id.
func ResolveIdentity(d *Draft) Identity {
	if d == nil {
		return Identity{}
	}
	return resolve(d.Route, d.ID, d.TempID)
}

// ResolvePayloadIdentity applies the same rule to a save payload.
func ResolvePayloadIdentity(p Payload) Identity {
	return resolve(p.Route, p.ID, p.TempID)
}

func resolve(route, id, tempID string) Identity {
	switch {
	case route != "":
		return Route(route)
	case id != "":
		return Temporary(id)
	case tempID != "":
		return Temporary(tempID)
	default:
		return Identity{}
	}
}
