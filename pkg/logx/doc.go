// Package logx is rotapost's logging front end over zerolog: a Logger value
// with typed fields, readable console output with a short file:line caller,
// and an optional JSON file sink for unattended runs.
package logx
