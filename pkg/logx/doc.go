// Package logx is a thin structured-logging layer over zerolog.
//
// Components receive a Logger and derive scoped loggers with With().
// The Service owns the sinks (console, file) and can re-apply them at
// runtime when the config is reloaded.
package logx
