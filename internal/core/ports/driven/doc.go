// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Connector: Lists views and fetches documents/attachments from a source
//   - ConnectorFactory: Creates connectors for a plan
//   - PlanStore: Plan and plan-view configuration persistence
//   - ItemStore: Item catalogue persistence
//   - DedupStore: Content-addressed document/value/attachment persistence
//   - ScanStateStore: Per-view watermark persistence
//   - RunStore: Scan-run accounting persistence
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
