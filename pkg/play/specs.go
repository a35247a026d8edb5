package play

import (
	"github.com/sw33tLie/playscope/pkg/extract"
)

// Dataset blocks of the app and search pages.
const (
	dsPrice    = 3
	dsSale     = 4
	dsDetail   = 5
	dsComments = 8
	dsSearch   = 4
)

// Layout of the app page. Every literal index the storefront uses lives in
// this file so that a layout change is a data change.
var (
	// appRoot prefixes every ds:5 path.
	appRoot = []any{1, 2}

	pathDescription    = []any{12, 0, 0, 1}
	pathDescriptionAlt = []any{72, 0, 1}
	pathPrice          = []any{57, 0, 0, 0, 0, 1, 0, 0}
	pathCurrency       = []any{57, 0, 0, 0, 0, 1, 0, 1}
	pathSaleTime       = []any{0, 2, 0, 0, 0, 14, 0, 0}
	pathSaleText       = []any{0, 2, 0, 0, 0, 14, 1}
	pathOriginalPrice  = []any{0, 2, 0, 0, 0, 1, 1, 0}
	pathCategories     = []any{118}
	pathGenreName      = []any{79, 0, 0, 0}
	pathGenreID        = []any{79, 0, 0, 2}
	pathImage          = []any{3, 2}
	pathVersion        = []any{140, 0, 0, 0}

	// Location of the search listing inside ds:4. The section index between
	// searchSections and searchListing varies by locale.
	searchSections = []any{0, 1}
	searchListing  = []any{22, 0}
	searchTop      = []any{0, 1, 0, 23, 16}

	// Offsets inside a reviews RPC payload.
	reviewItems = []any{0}
	reviewToken = []any{-2, -1}
)

const (
	defaultVersion = "Varies with device"
	uncategorized  = "Uncategorized"
)

func app(path ...any) *extract.Spec {
	return extract.From(dsDetail, join(appRoot, path)...)
}

func join(prefix, path []any) []any {
	out := make([]any, 0, len(prefix)+len(path))
	out = append(out, prefix...)
	return append(out, path...)
}

// DetailFields decodes the app page.
var DetailFields = extract.Table{
	{Name: "title", Spec: app(0, 0)},
	{Name: "description", Spec: app().Then(description)},
	{Name: "descriptionHTML", Spec: app().Then(descriptionHTML)},
	{Name: "summary", Spec: app(73, 0, 1).Then(unescapeText)},
	{Name: "installs", Spec: app(13, 0)},
	{Name: "minInstalls", Spec: app(13, 1)},
	{Name: "realInstalls", Spec: app(13, 2)},
	{Name: "score", Spec: app(51, 0, 1)},
	{Name: "ratings", Spec: app(51, 2, 1)},
	{Name: "reviews", Spec: app(51, 3, 1)},
	{Name: "histogram", Spec: app(51, 1).Then(histogram).Or([]any{int64(0), int64(0), int64(0), int64(0), int64(0)})},
	{Name: "price", Spec: app(pathPrice...).Then(micros)},
	{Name: "free", Spec: app(pathPrice...).Then(isFree)},
	{Name: "currency", Spec: app(pathCurrency...)},
	{Name: "sale", Spec: extract.From(dsSale, pathSaleTime...).Then(truthy).Or(false)},
	{Name: "saleTime", Spec: extract.From(dsSale, pathSaleTime...)},
	{Name: "originalPrice", Spec: extract.From(dsPrice, pathOriginalPrice...).Then(micros)},
	{Name: "saleText", Spec: extract.From(dsSale, pathSaleText...)},
	{Name: "offersIAP", Spec: app(19, 0).Then(truthy).Or(false)},
	{Name: "inAppProductPrice", Spec: app(19, 0)},
	{Name: "developer", Spec: app(68, 0)},
	{Name: "developerId", Spec: app(68, 1, 4, 2).Then(developerID)},
	{Name: "developerEmail", Spec: app(69, 1, 0)},
	{Name: "developerWebsite", Spec: app(69, 0, 5, 2)},
	{Name: "developerAddress", Spec: app(69, 2, 0)},
	{Name: "privacyPolicy", Spec: app(99, 0, 5, 2)},
	{Name: "genre", Spec: app(pathGenreName...)},
	{Name: "genreId", Spec: app(pathGenreID...)},
	{Name: "categories", Spec: app().Then(categories).Or([]Category{})},
	{Name: "icon", Spec: app(95, 0, 3, 2)},
	{Name: "headerImage", Spec: app(96, 0, 3, 2)},
	{Name: "screenshots", Spec: app(78, 0).Then(eachAt(pathImage...)).Or([]any{})},
	{Name: "video", Spec: app(100, 0, 0, 3, 2)},
	{Name: "videoImage", Spec: app(100, 1, 0, 3, 2)},
	{Name: "contentRating", Spec: app(9, 0)},
	{Name: "contentRatingDescription", Spec: app(9, 2, 1)},
	{Name: "adSupported", Spec: app(48).Then(truthy)},
	{Name: "containsAds", Spec: app(48).Then(truthy).Or(false)},
	{Name: "released", Spec: app(10, 0)},
	{Name: "lastUpdatedOn", Spec: app(145, 0, 0)},
	{Name: "updated", Spec: app(145, 0, 1, 0)},
	{Name: "version", Spec: app(pathVersion...).Or(defaultVersion)},
	{Name: "comments", Spec: extract.From(dsComments, 0).Then(eachAt(4)).Or([]any{})},
}

// ReviewFields decodes one item of a reviews page.
var ReviewFields = extract.Table{
	{Name: "reviewId", Spec: extract.At(0)},
	{Name: "userName", Spec: extract.At(1, 0)},
	{Name: "userImage", Spec: extract.At(1, 1, 3, 2)},
	{Name: "content", Spec: extract.At(4)},
	{Name: "score", Spec: extract.At(2)},
	{Name: "thumbsUpCount", Spec: extract.At(6)},
	{Name: "reviewCreatedVersion", Spec: extract.At(10)},
	{Name: "at", Spec: extract.At(5, 0).Then(epoch)},
	{Name: "replyContent", Spec: extract.At(7, 1)},
	{Name: "repliedAt", Spec: extract.At(7, 2, 0).Then(epoch)},
	{Name: "appVersion", Spec: extract.At(10)},
}

// PermissionType and PermissionList decode one permission group.
var (
	PermissionType = extract.At(0)
	PermissionList = extract.At(2).Then(permissionNames)
)

// SearchTopFields decodes the pinned result above a search listing.
var SearchTopFields = extract.Table{
	{Name: "appId", Spec: extract.At(11, 0, 0)},
	{Name: "icon", Spec: extract.At(2, 95, 0, 3, 2)},
	{Name: "screenshots", Spec: extract.At(2, 78, 0).Then(eachAt(pathImage...)).Or([]any{})},
	{Name: "title", Spec: extract.At(2, 0, 0)},
	{Name: "score", Spec: extract.At(2, 51, 0, 1)},
	{Name: "genre", Spec: extract.At(2, 79, 0, 0, 0)},
	{Name: "price", Spec: extract.At(join([]any{2}, pathPrice)...).Then(micros)},
	{Name: "free", Spec: extract.At(join([]any{2}, pathPrice)...).Then(isFree)},
	{Name: "currency", Spec: extract.At(join([]any{2}, pathCurrency)...)},
	{Name: "video", Spec: extract.At(2, 100, 0, 0, 3, 2)},
	{Name: "videoImage", Spec: extract.At(2, 100, 1, 0, 3, 2)},
	{Name: "description", Spec: extract.At(2, 72, 0, 1).Then(unescapeText)},
	{Name: "descriptionHTML", Spec: extract.At(2, 72, 0, 1)},
	{Name: "developer", Spec: extract.At(2, 68, 0)},
	{Name: "installs", Spec: extract.At(2, 13, 0)},
}

// SearchListFields decodes one ranked search result.
var SearchListFields = extract.Table{
	{Name: "appId", Spec: extract.At(0, 0, 0)},
	{Name: "icon", Spec: extract.At(0, 1, 3, 2)},
	{Name: "screenshots", Spec: extract.At(0, 2).Then(eachAt(pathImage...)).Or([]any{})},
	{Name: "title", Spec: extract.At(0, 3)},
	{Name: "score", Spec: extract.At(0, 4, 1)},
	{Name: "genre", Spec: extract.At(0, 5)},
	{Name: "price", Spec: extract.At(0, 8, 1, 0, 0).Then(micros)},
	{Name: "free", Spec: extract.At(0, 8, 1, 0, 0).Then(isFree)},
	{Name: "currency", Spec: extract.At(0, 8, 1, 0, 1)},
	{Name: "video", Spec: extract.At(0, 12, 0, 0, 3, 2)},
	{Name: "videoImage", Spec: extract.At(0, 12, 0, 3, 3, 2)},
	{Name: "description", Spec: extract.At(0, 13, 1).Then(unescapeText)},
	{Name: "descriptionHTML", Spec: extract.At(0, 13, 1)},
	{Name: "developer", Spec: extract.At(0, 14)},
	{Name: "installs", Spec: extract.At(0, 15)},
}
