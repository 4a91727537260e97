// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads a bank of GPIO inputs.
type Reader interface {
	// Read returns the logical state of every line in the bank, in the
	// order the lines were requested. true means active.
	Read() ([]bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Default pin assignments (BCM numbering). The e-paper HAT claims
// 8, 17, 24 and 25 plus the SPI0 pins.
var (
	DefaultButtonPins  = []int{5, 6, 13}
	DefaultBatteryPins = []int{16, 20, 21}
)

// DefaultChargePin reads the charger's status output. -1 disables it.
const DefaultChargePin = 26

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"
