// Package main provides the entry point for portal-agent.
// The agent logs a CRM portal profile in, evaluates its role based
// permissions and drives the realtime call session. A local JSON bridge built
// on Fiber exposes profile, menu, call, history and role administration
// endpoints to the UI process. Finished calls are kept in a local sqlite store
// through gorm.
package main
