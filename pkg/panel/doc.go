// Package panel holds the service modules that make up a Quayside host:
// the database, the reverse proxy and its site registry, the file browser,
// the metrics stack, the PHP runtime images, and the panel application
// itself. Each module composes the provisioning core (reconcile, vault,
// deploy, health, render) and stays idempotent: installing twice converges
// without rotating credentials or touching healthy data.
package panel
