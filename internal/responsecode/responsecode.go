// Package responsecode defines the numeric codes carried by the control
// socket protocol. These values are an external contract: clients parse
// the leading integer on every response line, so the numbers must never
// be renumbered once shipped.
package responsecode

const (
	CommandOkay          = 200
	ShareEnabledResult   = 201
	AsecPathResult       = 202
	AsecListResult       = 203
	StorageUsersListResult = 204
	XwarpStatusResult    = 205
	CryptfsGetfieldResult = 206

	VolumeStateChange         = 605
	VolumeDiskInserted        = 630
	VolumeDiskRemoved         = 631
	VolumeMountFailedNoMedia  = 632
	VolumeUuidChange          = 633
	VolumeUserLabelChange     = 634

	CommandSyntaxError  = 500
	CommandNoPermission = 501
	OperationFailed     = 502
)
