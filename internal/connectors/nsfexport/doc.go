// Package nsfexport reads legacy document-store databases from directory
// exports on the local filesystem. Each plan maps to one exported database
// directory containing a views listing, per-document JSON files and raw
// attachment payloads.
//
// Export layout for a plan (server_name, filepath):
//
//	<root>/<server_name>/<filepath>/
//	    views.json              ordered list of concrete view titles
//	    documents/<unid>.json   one exported document per file
//	    attachments/<unid>/<filename>
//
// The connector serves pages ordered by (modified_at, unid) ascending, so
// watermark-based incremental scans observe documents in commit order.
package nsfexport
