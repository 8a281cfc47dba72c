// Package notify announces newly detected firmware releases.
//
// Two notifiers implement the same Post(ctx, records) contract:
//
//   - MQTTNotifier publishes one retained JSON message per release on
//     <prefix>/release/<product>/<branch>, pausing between messages so
//     downstream chat bridges are not flooded.
//   - LogNotifier writes each release to the structured log. It is used
//     when MQTT is disabled or the broker is unreachable at startup.
//
// A notification failure never rolls back detection: the snapshots are
// already written, so a failed announcement is logged and the cycle moves on.
package notify
