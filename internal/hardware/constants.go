package hardware

const (
	DefaultDevice  = "/dev/i2c-1"
	DefaultAddress = 0x48 // ADDR pin tied to GND
	DefaultChannel = Channel(1)

	MaxAddress = 0x7F

	IIODevicesDir = "/sys/bus/iio/devices"

	consumerName = "check-pressure"
)

// Linux i2c-dev ioctl requests, see <linux/i2c-dev.h>.
const (
	i2cSlave = 0x0703
)

// ADS1115 register pointers.
const (
	RegConversion byte = 0x00
	RegConfig     byte = 0x01
)

// ADS1115 config register fields, bit 15 down to bit 0.
const (
	configOSStart  uint16 = 1 << 15 // write: start a single conversion
	configOSReady  byte   = 0x80    // read, high byte: no conversion in progress
	configMuxShift        = 12
	configPGAShift        = 9
	configModeOnce uint16 = 1 << 8
	configDRShift         = 5
	configCompMode uint16 = 1 << 4 // window comparator
	configCompPol  uint16 = 1 << 3 // ALERT/RDY active high
	configCompLat  uint16 = 1 << 2 // latching comparator
)

// Mux codes for single-ended inputs AINx against GND.
const (
	muxAIN0 uint8 = 0b100
	muxAIN1 uint8 = 0b101
	muxAIN2 uint8 = 0b110
	muxAIN3 uint8 = 0b111
)

// Gain selects the PGA full-scale range.
type Gain uint8

const (
	Gain6V144 Gain = iota
	Gain4V096
	Gain2V048
	Gain1V024
	Gain0V512
	Gain0V256
)

// DataRate selects samples per second.
type DataRate uint8

const (
	DataRate8 DataRate = iota
	DataRate16
	DataRate32
	DataRate64
	DataRate128
	DataRate250
	DataRate475
	DataRate860
)

// ComparatorQueue is the number of conversions beyond threshold before
// ALERT/RDY asserts.
type ComparatorQueue uint8

const (
	CompQueueOne ComparatorQueue = iota
	CompQueueTwo
	CompQueueFour
	CompQueueOff
)
