package rgbrpc

// NodeInfo identifies the node backing a provider.
type NodeInfo struct {
	Alias  string  `json:"alias"`
	Pubkey string  `json:"pubkey"`
	Color  *string `json:"color,omitempty"`
}

// EnableRequest is the parameter of the enable method.
type EnableRequest struct {
	Origin *string `json:"origin,omitempty"`
}

// EnableResult is optionally returned by providers when enable resolves.
type EnableResult struct {
	Node        NodeInfo `json:"node"`
	Methods     []string `json:"methods"`
	Permissions []string `json:"permissions"`
}

// GetInfoResponse is the result of the getInfo method.
type GetInfoResponse struct {
	Node    NodeInfo `json:"node"`
	Methods []string `json:"methods"`
}

// AddressResponse is the result of the getAddress method.
type AddressResponse struct {
	Address string `json:"address"`
}

// RGBInvoiceRequest asks the provider to create an invoice. A nil AssetID
// requests any asset, a nil Amount any amount.
type RGBInvoiceRequest struct {
	AssetID          *string `json:"asset_id,omitempty"`
	Amount           *uint64 `json:"amount,omitempty"`
	DurationSeconds  int64   `json:"duration_seconds"`
	MinConfirmations int64   `json:"min_confirmations"`
}

// RGBInvoiceResponse is the result of the rgbInvoice method.
type RGBInvoiceResponse struct {
	Invoice string `json:"invoice"`
}

// DecodeInvoiceRequest is the parameter of the decodeRgbInvoice method.
type DecodeInvoiceRequest struct {
	Invoice string `json:"invoice"`
}

// Assignment is the wire form of an RGB assignment.
type Assignment struct {
	Type  string `json:"type"`
	Value uint64 `json:"value"`
}

// InvoiceDecoded is the result of the decodeRgbInvoice method.
type InvoiceDecoded struct {
	RecipientID         string      `json:"recipient_id"`
	AssetID             string      `json:"asset_id"`
	Assignment          *Assignment `json:"assignment"`
	TransportEndpoints  []string    `json:"transport_endpoints"`
	AssetSchema         string      `json:"asset_schema"`
	Network             string      `json:"network"`
	ExpirationTimestamp int64       `json:"expiration_timestamp"`
}

// SendAssetRequest is the parameter of the sendAsset method.
type SendAssetRequest struct {
	RecipientID        string     `json:"recipient_id"`
	AssetID            string     `json:"asset_id"`
	Assignment         Assignment `json:"assignment"`
	TransportEndpoints []string   `json:"transport_endpoints"`
	Donation           bool       `json:"donation"`
	FeeRate            uint64     `json:"fee_rate"`
	MinConfirmations   int64      `json:"min_confirmations"`
	SkipSync           bool       `json:"skip_sync"`
}

// TXIDResponse is the result of the sendAsset method.
type TXIDResponse struct {
	Txid string `json:"txid"`
}

// ListTransfersRequest is the parameter of the listTransfers method.
type ListTransfersRequest struct {
	AssetID string `json:"assetId"`
}

// TransportEndpoint is the wire form of a transfer's transport endpoint.
type TransportEndpoint struct {
	Endpoint      string `json:"endpoint"`
	TransportType string `json:"transport_type"`
	Used          bool   `json:"used"`
}

// Transfer is the wire form of an RGB transfer record.
type Transfer struct {
	Idx                 int64               `json:"idx"`
	CreatedAt           int64               `json:"created_at"`
	UpdatedAt           int64               `json:"updated_at"`
	Status              string              `json:"status"`
	RequestedAssignment *Assignment         `json:"requested_assignment"`
	Assignments         []Assignment        `json:"assignments"`
	Kind                string              `json:"kind"`
	Txid                *string             `json:"txid"`
	RecipientID         *string             `json:"recipient_id"`
	ReceiveUtxo         *string             `json:"receive_utxo"`
	ChangeUtxo          *string             `json:"change_utxo"`
	Expiration          *int64              `json:"expiration"`
	TransportEndpoints  []TransportEndpoint `json:"transport_endpoints"`
}

// TransferEvent is the payload of EventTransferUpdate.
type TransferEvent struct {
	AssetID  string   `json:"asset_id"`
	Transfer Transfer `json:"transfer"`
}

// ListTransfersResponse is the result of the listTransfers method.
type ListTransfersResponse struct {
	Transfers []Transfer `json:"transfers"`
}

// NetworkInfoResponse is the result of the getNetworkInfo method.
type NetworkInfoResponse struct {
	Network string `json:"network"`
	Height  int64  `json:"height"`
}

// Balance is a settled/future/spendable triple in satoshis.
type Balance struct {
	Settled   int64 `json:"settled"`
	Future    int64 `json:"future"`
	Spendable int64 `json:"spendable"`
}

// BTCBalance is the result of the getBalance method.
type BTCBalance struct {
	Vanilla Balance `json:"vanilla"`
	Colored Balance `json:"colored"`
}

// AssetBalance is the balance carried by every asset in listAssets.
type AssetBalance struct {
	Settled          uint64 `json:"settled"`
	Future           uint64 `json:"future"`
	Spendable        uint64 `json:"spendable"`
	OffchainOutbound uint64 `json:"offchain_outbound"`
	OffchainInbound  uint64 `json:"offchain_inbound"`
}

// Media references a file attached to an asset.
type Media struct {
	FilePath string `json:"file_path"`
	Mime     string `json:"mime"`
}

// Asset holds the fields shared by every asset schema.
type Asset struct {
	AssetID      string       `json:"asset_id"`
	Ticker       string       `json:"ticker"`
	Name         string       `json:"name"`
	Details      *string      `json:"details"`
	Precision    uint8        `json:"precision"`
	IssuedSupply uint64       `json:"issued_supply"`
	Timestamp    int64        `json:"timestamp"`
	AddedAt      int64        `json:"added_at"`
	Balance      AssetBalance `json:"balance"`
	Media        *Media       `json:"media"`
}

// UdaAttachment is a file attached to a unique digital asset token.
type UdaAttachment struct {
	FilePath string `json:"file_path"`
	Digest   string `json:"digest"`
	Mime     string `json:"mime"`
}

// UdaToken is the token carried by a unique digital asset. Attachments are
// keyed by their decimal index.
type UdaToken struct {
	Index         uint32                   `json:"index"`
	Ticker        *string                  `json:"ticker"`
	Name          *string                  `json:"name"`
	Details       *string                  `json:"details"`
	EmbeddedMedia bool                     `json:"embedded_media"`
	Media         *Media                   `json:"media"`
	Attachments   map[string]UdaAttachment `json:"attachments"`
	Reserves      bool                     `json:"reserves"`
}

// UdaAsset is an asset of the unique digital asset schema.
type UdaAsset struct {
	Asset
	Token *UdaToken `json:"token"`
}

// ListAssetsResponse is the result of the listAssets method, grouped by
// schema.
type ListAssetsResponse struct {
	Nia []Asset    `json:"nia"`
	Uda []UdaAsset `json:"uda"`
	Cfa []Asset    `json:"cfa"`
}

// SignMessageRequest is the parameter of the signMessage method.
type SignMessageRequest struct {
	Message string `json:"message"`
}

// SignMessageResponse is the result of the signMessage method.
type SignMessageResponse struct {
	SignedMessage string `json:"signed_message"`
}
