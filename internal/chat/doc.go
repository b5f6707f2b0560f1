// Package chat implements a multi-user chat relay on top of a broadcast channel.
//
// Clients connect over TCP (newline-delimited JSON) or WebSocket (one JSON
// object per text frame). The first message of a session must introduce the
// user; afterwards clients send text and may rename themselves:
//
//	-> {"User":{"name":"ann"}}
//	-> {"ClientMessage":"hello"}
//	<- {"Chat":{"user":{"name":"bob"},"content":"hi ann"}}
//
// Every session gets its own cursor into the relay log, so a client only sees
// messages published after it connected. A session's own messages are not sent
// back to it unless Config.Echo is set.
//
// Usage:
//
//	relay := chat.NewRelay(chat.WithConfig(cfg), chat.WithLogger(log))
//	defer relay.Close()
//
//	g.Go(tcpServer.Run(ctx, relay))
//	mux.Handle("/ws", relay.WebSocketHandler())
package chat
