package room

// Effect is one outbound notification: an event and payload for a set of connections.
type Effect struct {
	To      []string
	Event   string
	Payload any
}

// Outcome collects the effects and domain notices produced by handling one inbound event.
type Outcome struct {
	Effects []Effect
	Notices []any
}

func (o *Outcome) add(e Effect) {
	if len(e.To) == 0 {
		return
	}
	o.Effects = append(o.Effects, e)
}

func (o *Outcome) notice(n any) {
	o.Notices = append(o.Notices, n)
}

func (o *Outcome) merge(other Outcome) {
	o.Effects = append(o.Effects, other.Effects...)
	o.Notices = append(o.Notices, other.Notices...)
}

// broadcastToRoom addresses every member of r except exclude. An empty
// exclude includes the whole room.
func broadcastToRoom(r *Room, event string, payload any, exclude string) Effect {
	return Effect{To: r.ConnIDs(exclude), Event: event, Payload: payload}
}

// sendToConnection addresses a single connection.
func sendToConnection(connID, event string, payload any) Effect {
	return Effect{To: []string{connID}, Event: event, Payload: payload}
}

// sendToConnections addresses an explicit recipient set.
func sendToConnections(connIDs []string, event string, payload any) Effect {
	return Effect{To: connIDs, Event: event, Payload: payload}
}
