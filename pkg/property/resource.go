// Package property implements the client side of property exchange:
// gating get-property requests so at most one is in flight per
// (endpoint, resource) pair, expiring stale requests, caching received
// values, and parsing the standard resource bodies.
package property

// Kind is the typed discriminator for known property resources.
type Kind uint8

const (
	// KindOther is a resource identified only by its raw name.
	KindOther Kind = iota
	KindResourceList
	KindDeviceInfo
	KindChannelList
	KindAllCtrlList
	KindChCtrlList
	KindProgramList
)

// Wire names of the standard resources.
const (
	nameResourceList = "ResourceList"
	nameDeviceInfo   = "DeviceInfo"
	nameChannelList  = "ChannelList"
	nameAllCtrlList  = "AllCtrlList"
	nameChCtrlList   = "ChCtrlList"
	nameProgramList  = "ProgramList"
)

// Resource identifies a property resource: one of the standard kinds, or
// an arbitrary name for device-defined resources.
type Resource struct {
	Kind Kind

	// name is set only for KindOther.
	name string
}

// Standard resources.
var (
	ResourceList = Resource{Kind: KindResourceList}
	DeviceInfo   = Resource{Kind: KindDeviceInfo}
	ChannelList  = Resource{Kind: KindChannelList}
	AllCtrlList  = Resource{Kind: KindAllCtrlList}
	ChCtrlList   = Resource{Kind: KindChCtrlList}
	ProgramList  = Resource{Kind: KindProgramList}
)

// Other returns a resource for a device-defined name.
func Other(name string) Resource {
	return Resource{Kind: KindOther, name: name}
}

// FromName maps a wire name back to a Resource, recognizing the standard
// names and falling back to Other.
func FromName(name string) Resource {
	switch name {
	case nameResourceList:
		return ResourceList
	case nameDeviceInfo:
		return DeviceInfo
	case nameChannelList:
		return ChannelList
	case nameAllCtrlList:
		return AllCtrlList
	case nameChCtrlList:
		return ChCtrlList
	case nameProgramList:
		return ProgramList
	default:
		return Other(name)
	}
}

// Name returns the resource's wire name.
func (r Resource) Name() string {
	switch r.Kind {
	case KindResourceList:
		return nameResourceList
	case KindDeviceInfo:
		return nameDeviceInfo
	case KindChannelList:
		return nameChannelList
	case KindAllCtrlList:
		return nameAllCtrlList
	case KindChCtrlList:
		return nameChCtrlList
	case KindProgramList:
		return nameProgramList
	default:
		return r.name
	}
}

// String returns the wire name.
func (r Resource) String() string {
	return r.Name()
}
