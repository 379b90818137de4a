package config

import "reflect"

// RestartRequired lists the sections that differ between two
// configurations and cannot be applied without a restart. Only the log
// level is applied live.
func RestartRequired(oldCfg, newCfg *Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}

	var changed []string
	if !reflect.DeepEqual(oldCfg.Server, newCfg.Server) {
		changed = append(changed, "server")
	}
	if oldCfg.BasePath != newCfg.BasePath {
		changed = append(changed, "basePath")
	}
	if !reflect.DeepEqual(oldCfg.Upstream, newCfg.Upstream) {
		changed = append(changed, "upstream")
	}

	oldLog, newLog := oldCfg.Observability.Logging, newCfg.Observability.Logging
	if oldLog.Format != newLog.Format || oldLog.Output != newLog.Output {
		changed = append(changed, "observability.logging")
	}
	if oldCfg.Observability.Metrics != newCfg.Observability.Metrics {
		changed = append(changed, "observability.metrics")
	}
	if oldCfg.Observability.Tracing != newCfg.Observability.Tracing {
		changed = append(changed, "observability.tracing")
	}
	return changed
}
