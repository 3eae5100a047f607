// Package port checks host port availability for the preview container.
//
// docpreview never chooses a port on its own: the published port is fixed
// (9090 unless configured). The Scanner is used for a preflight warning
// after the previous preview has been removed. If the port is still held
// by some other process, the user is told which process-free port would
// work, and the launch proceeds so Docker reports the bind failure itself.
package port
