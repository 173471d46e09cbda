// Package monitor owns the set of monitored fences and mediates start/stop
// requests against an asynchronous geofencing provider.
//
// A Manager combines three parts:
//   - Registry, the validated, insertion-ordered fence list;
//   - a state machine (idle, starting, active, stopping, failed) that keeps at
//     most one provider request in flight and queues one pending intent;
//   - a normalizer that decodes raw enter/exit payloads, flags stale
//     identifiers and optionally suppresses duplicates.
//
// Consumer requests and provider events are funneled into a single mailbox
// processed by Manager.Run one message at a time. Subscribers are notified
// from that loop in arrival order.
package monitor
