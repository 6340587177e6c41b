package fetcher

// Key identifies one kind of Drive-backed data a caller can ask for.
type Key string

const (
	// KeyFileFrame is a downloaded, parsed battery test CSV.
	KeyFileFrame Key = "file.frame"

	// KeyFileMeta is the Drive metadata of a single file.
	KeyFileMeta Key = "file.meta"

	// KeyFolderListing is everything directly inside one folder.
	KeyFolderListing Key = "folder.listing"

	// KeyFolderSubfolders is the immediate subfolders of one folder.
	KeyFolderSubfolders Key = "folder.subfolders"

	// KeyFolderCSVs is the CSV files directly inside one folder.
	KeyFolderCSVs Key = "folder.csvs"

	// KeyCSVIndex is the recursive index of every CSV under the root folder.
	KeyCSVIndex Key = "csv.index"

	// KeyBatteryFolders is the set of folders under the root that contain
	// CSV files (the test-run dropdown).
	KeyBatteryFolders Key = "battery.folders"

	// KeySearch is a by-name file search.
	KeySearch Key = "drive.search"
)

// Params used by providers. Missing required params fail the fetch.
const (
	ParamFileID   = "file_id"
	ParamFileName = "name"
	ParamPath     = "path"
	ParamFolderID = "folder_id"
	ParamQuery    = "query"
	ParamMaxDepth = "max_depth"
)

// Tier says where fetched values are cached.
type Tier int

const (
	// TierListing results are memoized briefly in memory; Drive folder
	// contents change while the dashboard is open.
	TierListing Tier = iota

	// TierFrame results persist in the frame store. The provider writes the
	// store itself since it knows the file's name and path.
	TierFrame
)
