package modules

import (
	"context"

	"github.com/aukilabs/tessera/models"
	"github.com/aukilabs/tessera/protocol"
)

// Module is the interface that describes a module that extends Tessera
// capabilities.
type Module interface {
	// Returns the module name.
	Name() string

	// Initializes the module with the session joined by the client.
	Init(*models.ClusterSession)

	// Handles a given message. Modules are free to decide whether they handle a
	// message.
	//
	// Returning an error typed protocol.ErrTypeMsgSkip indicates that handling
	// a message was skipped.
	//
	// Any other returned errors causes the current WebSocket client to be
	// disconnected.
	HandleMsg(context.Context, protocol.ResponseSender, protocol.Msg) error

	// Handles a client disconnection.
	HandleDisconnect()
}
