// Package connectors provides implementations of the Connector interface
// for document-store sources. Each connector knows how to enumerate views
// and fetch documents from a specific source type.
//
// Connectors are created per plan through a ConnectorFactory.
package connectors
