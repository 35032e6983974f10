// Package bridge translates classified upstream occurrences into catalogue
// envelopes and hands them to the notifier.
//
// The mapping lives in a single declarative table. Install registers one
// listener per table row on the session's transports; each listener is
// isolated, so a failing translation or a full queue never affects its
// siblings.
package bridge
