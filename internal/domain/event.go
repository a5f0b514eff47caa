package domain

// EventRecord is one entry of the append-only observability journal emitted
// after every committed mutation. Records are flat so they serialize directly
// to JSON for the stream consumers and to a single row for the stores; fields
// irrelevant to a given type stay at their zero value.
type EventRecord struct {
	Sequence  uint64  // journal position, assigned at commit, gap-free
	EventID   string  // deterministic hash over identifying fields
	Type      string  // one of the Event* constants
	Initiator Address // caller that triggered the mutation
	From      Address // debited account (zero for mint-shaped events)
	To        Address // credited account (zero for burn-shaped events)
	Amount    string  // decimal amount moved, minted, burned, or charged
	Role      Role    // role involved, role events only
	PrevValue string  // prior value, threshold updates only
	Timestamp int64   // caller-supplied clock reading (ms)
}

// Event type constants.
const (
	EventMinted                      = "Minted"
	EventBurned                      = "Burned"
	EventTransferCompleted           = "TransferCompleted"
	EventFeeCharged                  = "FeeCharged"
	EventAddressWhitelisted          = "AddressWhitelisted"
	EventAddressRemovedFromWhitelist = "AddressRemovedFromWhitelist"
	EventFeeWaiverThresholdUpdated   = "FeeWaiverThresholdUpdated"
	EventRoleGranted                 = "RoleGranted"
	EventRoleRevoked                 = "RoleRevoked"
	EventApprovalSet                 = "ApprovalSet"
)
