// Package config defines configuration structures for the zincdl CLI.
//
// Configuration can be provided via, in increasing precedence:
//   - Built-in defaults
//   - YAML configuration file
//   - Environment variables (ZINCDL_ prefix)
//   - Command-line flags
//
// # File format
//
//	tranche:
//	  subset: leadlike        # replaces mw and logp
//	  mw: ["300", "325"]
//	  logp: ["2.5"]
//	  reactivity: standard
//	  purchasability: in-stock
//	  reac_exclusive: true
//	  purch_exclusive: true
//	  ph: [ref]
//	  charge: ["0"]
//	  format: smi
//	  base_url: https://files2.docking.org/3D
//	concurrency: 4
//	timeout: 5s
//	max_retries: 3
//	chunk_size: 8KiB
//	max_chunk_pause: 50ms
//	max_pending: 0            # 0 means 4 * concurrency
//	requests_per_second: 0    # 0 means unlimited
//	out_dir: downloads/zinc   # or a bucket URL such as s3://bucket
//	progress: false
//	verbose: false
package config
