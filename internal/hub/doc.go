// Package hub fans out status records, alert events and system errors to
// every currently subscribed consumer.
//
// Delivery is best-effort: there is no replay for late joiners, no ordering
// across subscribers and no retry. Each subscription has a bounded buffer and
// a subscriber that falls behind loses messages instead of stalling the
// publisher.
package hub
