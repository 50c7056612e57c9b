// Package transport defines the boundary between the engine and a chat platform.
//
// Inbound traffic arrives as three event kinds:
//
//   - PostReceived: a new post published to the source channel
//   - TextReceived: a text message sent to the bot by a user or operator
//   - ChoiceSelected: a user or operator pressed an inline choice button
//
// Outbound traffic goes through the Transport interface. The engine never
// talks to the chat platform directly, so a recording double (see the mock
// subpackage) can stand in for the real adapter in tests.
package transport
