// Package config loads statehistory settings.
//
// Settings live in statehistory.json or statehistory.yaml in the project
// directory. JSON is tried first. Durations are written as Go duration
// strings.
//
//	{
//	  "debounce": "16ms",
//	  "diagnosticsBuffer": 64,
//	  "server": {
//	    "addr": ":8080",
//	    "readTimeout": "60s",
//	    "writeTimeout": "10s",
//	    "allowedOrigins": ["http://localhost:5173"]
//	  },
//	  "metrics": {"namespace": "statehistory"},
//	  "tracing": {"tracerName": "statehistory"}
//	}
package config
