// Package domain defines the core domain types and interfaces of the Twitch bridge.
//
// It holds the closed event catalogue and the envelope every outbound
// notification is wrapped in, the upstream session contracts (connector,
// chat, pub/sub, channel API) and the error taxonomy. Implementations live
// under internal/adapter; orchestration lives in internal/app.
package domain
