package message

type Reliability uint8

const (
	Reliability_Unreliable Reliability = iota
	Reliability_UnreliableSequenced
	Reliability_Reliable
	Reliability_ReliableOrdered
	Reliability_ReliableSequenced

	Reliability_NONE
)

// AllReliabilities lists the modes in wire order.
var AllReliabilities = []Reliability{
	Reliability_Unreliable,
	Reliability_UnreliableSequenced,
	Reliability_Reliable,
	Reliability_ReliableOrdered,
	Reliability_ReliableSequenced,
}

func (r Reliability) IsValid() bool {
	return r < Reliability_NONE
}

// IsReliable reports whether the transport is expected to deliver the message.
func (r Reliability) IsReliable() bool {
	return r == Reliability_Reliable || r == Reliability_ReliableOrdered || r == Reliability_ReliableSequenced
}

func (r Reliability) IsSequenced() bool {
	return r == Reliability_UnreliableSequenced || r == Reliability_ReliableSequenced
}

func (r Reliability) String() string {
	switch r {
	case Reliability_Unreliable:
		return "Unreliable"
	case Reliability_UnreliableSequenced:
		return "UnreliableSequenced"
	case Reliability_Reliable:
		return "Reliable"
	case Reliability_ReliableOrdered:
		return "ReliableOrdered"
	case Reliability_ReliableSequenced:
		return "ReliableSequenced"
	}
	return "None"
}
