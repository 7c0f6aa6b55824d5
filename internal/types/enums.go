package types

// ChainState is the position of a resolution chain within its catalog's
// stage sequence.
type ChainState string

const (
	ChainStateSearching          ChainState = "searching"
	ChainStateLocatingDetailPage ChainState = "locating_detail_page"
	ChainStateLocatingVersion    ChainState = "locating_version_or_download_page"
	ChainStateLocatingBinary     ChainState = "locating_final_binary_url"
	ChainStateDone               ChainState = "done"
)

type StageCondition string

const (
	StageConditionAlways  StageCondition = "always"
	StageConditionVersion StageCondition = "version"
	StageConditionLatest  StageCondition = "latest"
)

// MissKind tells the chain how to report a stage whose pattern did not match.
type MissKind string

const (
	MissAppNotFound     MissKind = "app_not_found"
	MissVersionNotFound MissKind = "version_not_found"
	MissLinkNotFound    MissKind = "link_not_found"
)

type StageOutcomeKind string

const (
	StageOutcomeNextURL        StageOutcomeKind = "next_url"
	StageOutcomeNotFound       StageOutcomeKind = "not_found"
	StageOutcomeHTTPError      StageOutcomeKind = "http_error"
	StageOutcomeTransportError StageOutcomeKind = "transport_error"
)

type DownloadOutcomeKind string

const (
	DownloadOutcomeSaved  DownloadOutcomeKind = "saved"
	DownloadOutcomeFailed DownloadOutcomeKind = "failed"
)

// UnknownReleaseDate is reported when no date marker sits near a version.
const UnknownReleaseDate = "unknown"
