package curseforge

import (
	"strconv"
	"strings"
	"time"
)

// Project mirrors the v1 "Mod" schema.
type Project struct {
	ID                            uint64        `json:"id"`
	GameID                        uint64        `json:"gameId"`
	Name                          string        `json:"name"`
	Slug                          string        `json:"slug"`
	Links                         ProjectLinks  `json:"links"`
	Summary                       string        `json:"summary"`
	Status                        ProjectStatus `json:"status"`
	DownloadCount                 uint64        `json:"downloadCount"`
	IsFeatured                    *bool         `json:"isFeatured"`
	PrimaryCategoryID             uint64        `json:"primaryCategoryId"`
	ClassID                       *uint64       `json:"classId"`
	Authors                       []Author      `json:"authors"`
	Logo                          *Asset        `json:"logo"`
	Screenshots                   []Asset       `json:"screenshots"`
	MainFileID                    *uint64       `json:"mainFileId"`
	LatestFiles                   []File        `json:"latestFiles"`
	LatestFilesIndexes            []FileIndex   `json:"latestFilesIndexes"`
	LatestEarlyAccessFilesIndexes []FileIndex   `json:"latestEarlyAccessFilesIndexes"`
	DateCreated                   time.Time     `json:"dateCreated"`
	DateModified                  *time.Time    `json:"dateModified"`
	DateReleased                  *time.Time    `json:"dateReleased"`
	AllowModDistribution          *bool         `json:"allowModDistribution"`
	GamePopularityRank            *uint64       `json:"gamePopularityRank"`
	IsAvailable                   *bool         `json:"isAvailable"`
	HasCommentsEnabled            *bool         `json:"hasCommentsEnabled"`
	ThumbsUpCount                 *uint64       `json:"thumbsUpCount"`
	Rating                        *float64      `json:"rating"`
}

// ProjectLinks holds the external pages of a project.
type ProjectLinks struct {
	WebsiteURL string  `json:"websiteUrl"`
	WikiURL    *string `json:"wikiUrl"`
	IssuesURL  *string `json:"issuesUrl"`
	SourcesURL *string `json:"sourcesUrl"`
}

// Author is a project member as listed by the API.
type Author struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	AvatarURL *string `json:"avatarUrl"`
}

// Asset is a logo or screenshot.
type Asset struct {
	ID           uint64  `json:"id"`
	ProjectID    uint64  `json:"modId"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	URL          string  `json:"url"`
}

// File mirrors the v1 "File" schema.
type File struct {
	ID                   uint64          `json:"id"`
	GameID               uint64          `json:"gameId"`
	ProjectID            uint64          `json:"modId"`
	IsAvailable          *bool           `json:"isAvailable"`
	DisplayName          *string         `json:"displayName"`
	FileName             string          `json:"fileName"`
	ReleaseType          FileReleaseType `json:"releaseType"`
	Status               FileStatus      `json:"fileStatus"`
	Hashes               []FileHash      `json:"hashes"`
	DateUploaded         time.Time       `json:"fileDate"`
	Size                 uint64          `json:"fileLength"`
	DownloadCount        uint64          `json:"downloadCount"`
	SizeOnDisk           *uint64         `json:"fileSizeOnDisk"`
	DownloadURL          *string         `json:"downloadUrl"`
	GameVersions         []string        `json:"gameVersions"`
	ExposeAsAlternative  *bool           `json:"exposeAsAlternative"`
	ParentProjectFileID  *uint64         `json:"parentProjectFileId"`
	AlternateFileID      *uint64         `json:"alternateFileId"`
	IsServerPack         bool            `json:"isServerPack"`
	ServerPackFileID     *uint64         `json:"serverPackFileId"`
	IsEarlyAccessContent bool            `json:"isEarlyAccessContent"`
	EarlyAccessEndDate   *time.Time      `json:"earlyAccessEndDate"`
	Fingerprint          uint64          `json:"fileFingerprint"`
}

// FileHash is a checksum published for a file.
type FileHash struct {
	Value     string        `json:"value"`
	Algorithm HashAlgorithm `json:"algo"`
}

// FileIndex is an entry of a project's latest files per game version.
type FileIndex struct {
	GameVersion       string          `json:"gameVersion"`
	FileID            uint64          `json:"fileId"`
	FileName          string          `json:"filename"`
	ReleaseType       FileReleaseType `json:"releaseType"`
	GameVersionTypeID *uint64         `json:"gameVersionTypeId"`
	ModLoader         *ModLoaderType  `json:"modLoader"`
}

// Featured reports isFeatured, which the API omits when true.
func (p Project) Featured() bool { return boolOr(p.IsFeatured, true) }

// Available reports isAvailable, defaulting to true.
func (p Project) Available() bool { return boolOr(p.IsAvailable, true) }

// DistributionAllowed reports allowModDistribution, defaulting to true.
func (p Project) DistributionAllowed() bool { return boolOr(p.AllowModDistribution, true) }

// CommentsEnabled reports hasCommentsEnabled, defaulting to true.
func (p Project) CommentsEnabled() bool { return boolOr(p.HasCommentsEnabled, true) }

// FileURL returns the web page of fileID below the project's website.
func (p Project) FileURL(fileID uint64) string {
	return strings.TrimRight(p.Links.WebsiteURL, "/") + "/files/" + strconv.FormatUint(fileID, 10)
}

// Available reports isAvailable, defaulting to true.
func (f File) Available() bool { return boolOr(f.IsAvailable, true) }

// ExposedAsAlternative reports exposeAsAlternative, defaulting to true.
func (f File) ExposedAsAlternative() bool { return boolOr(f.ExposeAsAlternative, true) }

// Hash returns the checksum for algo if the API published one.
func (f File) Hash(algo HashAlgorithm) (string, bool) {
	for _, h := range f.Hashes {
		if h.Algorithm == algo {
			return h.Value, true
		}
	}
	return "", false
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// ProjectStatus is the moderation state of a project.
type ProjectStatus uint8

const (
	ProjectStatusNew ProjectStatus = iota + 1
	ProjectStatusChangesRequired
	ProjectStatusUnderSoftReview
	ProjectStatusApproved
	ProjectStatusRejected
	ProjectStatusChangesMade
	ProjectStatusInactive
	ProjectStatusAbandoned
	ProjectStatusDeleted
	ProjectStatusUnderReview
)

var projectStatusNames = []string{
	"new", "changes_required", "under_soft_review", "approved", "rejected",
	"changes_made", "inactive", "abandoned", "deleted", "under_review",
}

func (s ProjectStatus) String() string { return enumName(projectStatusNames, int(s), 1) }

// FileReleaseType is the release channel of a file.
type FileReleaseType uint8

const (
	ReleaseTypeRelease FileReleaseType = iota + 1
	ReleaseTypeBeta
	ReleaseTypeAlpha
)

var releaseTypeNames = []string{"release", "beta", "alpha"}

func (t FileReleaseType) String() string { return enumName(releaseTypeNames, int(t), 1) }

// FileStatus is the processing state of a file.
type FileStatus uint8

const (
	FileStatusProcessing FileStatus = iota + 1
	FileStatusChangesRequired
	FileStatusUnderReview
	FileStatusApproved
	FileStatusRejected
	FileStatusMalwareDetected
	FileStatusDeleted
	FileStatusArchived
	FileStatusTesting
	FileStatusReleased
	FileStatusReadyForReview
	FileStatusDeprecated
	FileStatusBaking
	FileStatusAwaitingPublishing
	FileStatusFailedPublishing
	FileStatusCooking
	FileStatusCooked
	FileStatusUnderManualReview
	FileStatusScanningForMalware
	FileStatusProcessingFile
	FileStatusPendingRelease
	FileStatusReadyForCooking
	FileStatusPostProcessing
)

var fileStatusNames = []string{
	"processing", "changes_required", "under_review", "approved", "rejected",
	"malware_detected", "deleted", "archived", "testing", "released",
	"ready_for_review", "deprecated", "baking", "awaiting_publishing",
	"failed_publishing", "cooking", "cooked", "under_manual_review",
	"scanning_for_malware", "processing_file", "pending_release",
	"ready_for_cooking", "post_processing",
}

func (s FileStatus) String() string { return enumName(fileStatusNames, int(s), 1) }

// HashAlgorithm identifies the algorithm of a FileHash.
type HashAlgorithm uint8

const (
	HashSHA1 HashAlgorithm = iota + 1
	HashMD5
)

var hashAlgorithmNames = []string{"sha_1", "md5"}

func (a HashAlgorithm) String() string { return enumName(hashAlgorithmNames, int(a), 1) }

// ModLoaderType is the loader a FileIndex targets.
type ModLoaderType uint8

const (
	ModLoaderAny ModLoaderType = iota
	ModLoaderForge
	ModLoaderCauldron
	ModLoaderLiteLoader
	ModLoaderFabric
	ModLoaderQuilt
	ModLoaderNeoForge
)

var modLoaderNames = []string{"any", "forge", "cauldron", "liteloader", "fabric", "quilt", "neoforge"}

func (l ModLoaderType) String() string { return enumName(modLoaderNames, int(l), 0) }

func enumName(names []string, value, first int) string {
	idx := value - first
	if idx < 0 || idx >= len(names) {
		return "unknown(" + strconv.Itoa(value) + ")"
	}
	return names[idx]
}
