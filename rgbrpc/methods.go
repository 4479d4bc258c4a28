// Package rgbrpc holds the wire contract spoken with an RGB WebLN provider:
// the method names accepted by its generic request primitive, the JSON shapes
// of every request and response, and the errors a provider can surface.
package rgbrpc

// The set of methods a provider answers through its generic request
// primitive.
const (
	MethodEnable           = "enable"
	MethodIsEnabled        = "isEnabled"
	MethodGetInfo          = "getInfo"
	MethodGetAddress       = "getAddress"
	MethodRGBInvoice       = "rgbInvoice"
	MethodDecodeRGBInvoice = "decodeRgbInvoice"
	MethodSendAsset        = "sendAsset"
	MethodListTransfers    = "listTransfers"
	MethodListAssets       = "listAssets"
	MethodGetNetworkInfo   = "getNetworkInfo"
	MethodGetBalance       = "getBalance"
	MethodSignMessage      = "signMessage"
)

// Methods returns every method name known to this client, in the order they
// appear in the provider contract.
func Methods() []string {
	return []string{
		MethodEnable, MethodIsEnabled, MethodGetInfo,
		MethodGetAddress, MethodRGBInvoice, MethodDecodeRGBInvoice,
		MethodSendAsset, MethodListTransfers, MethodListAssets,
		MethodGetNetworkInfo, MethodGetBalance, MethodSignMessage,
	}
}

// Events a provider may push to registered handlers. Providers are free to
// emit others, the registry forwards any name.
const (
	// EventTransferUpdate carries a TransferEvent whenever a transfer
	// record changes.
	EventTransferUpdate = "transferUpdate"

	// EventAccountChanged is emitted when the user switches the account
	// backing the provider. It carries no payload.
	EventAccountChanged = "accountChanged"
)
