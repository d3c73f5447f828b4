package wizard

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/desertthunder/marquee/internal/models"
	"github.com/desertthunder/marquee/internal/shared"
)

const (
	FlowSoundUpload       = "sound_upload"
	FlowClipUpload        = "clip_upload"
	FlowCompetitionCreate = "competition_create"
	FlowTicketCheckout    = "ticket_checkout"
	FlowArtistProfile     = "artist_profile"
)

var registry = map[string]func() *Flow{
	FlowSoundUpload:       SoundUpload,
	FlowClipUpload:        ClipUpload,
	FlowCompetitionCreate: CompetitionCreate,
	FlowTicketCheckout:    TicketCheckout,
	FlowArtistProfile:     ArtistProfile,
}

// Lookup builds the named flow.
func Lookup(kind string) (*Flow, error) {
	build, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownFlow, kind)
	}
	return build(), nil
}

// FlowKinds lists the registered flows in sorted order.
func FlowKinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

func omitWhenFree(priceField, freeField string) func(models.FormState) []string {
	return func(f models.FormState) []string {
		if f.Bool(freeField) {
			return []string{priceField}
		}
		return nil
	}
}

// SoundUpload posts a new sound with its audio file, credits and pricing.
func SoundUpload() *Flow {
	return &Flow{
		Kind:     FlowSoundUpload,
		Title:    "Upload a sound",
		Method:   http.MethodPost,
		Endpoint: "/api/sounds",
		Encoding: EncodingMultipart,
		Steps: []Step{
			{
				Name:   "details",
				Title:  "Details",
				Fields: []string{"title", "category_id", "description", "tags"},
				Rules:  []Rule{Required("title"), Required("category_id"), PositiveInt("category_id")},
			},
			{
				Name:   "file",
				Title:  "Audio file",
				Fields: []string{"audio_file"},
				Rules:  []Rule{RequiredFile("audio_file"), FileConstraint("audio_file", AudioLimit)},
			},
			{
				Name:   "credits",
				Title:  "Credits",
				Fields: []string{"copyright_owner", "composer", "credits"},
				Rules:  []Rule{Required("copyright_owner"), Required("composer")},
			},
			{
				Name:   "pricing",
				Title:  "Pricing",
				Fields: []string{"is_free", "price"},
				Rules:  []Rule{PricedUnlessFree("price", "is_free")},
			},
		},
		Flags: []string{"is_free"},
		Omit:  omitWhenFree("price", "is_free"),
	}
}

// ClipUpload posts a video clip with its thumbnail.
func ClipUpload() *Flow {
	return &Flow{
		Kind:     FlowClipUpload,
		Title:    "Upload a clip",
		Method:   http.MethodPost,
		Endpoint: "/api/clips",
		Encoding: EncodingMultipart,
		Steps: []Step{
			{
				Name:   "details",
				Title:  "Details",
				Fields: []string{"title", "category_id", "description", "tags"},
				Rules:  []Rule{Required("title"), Required("category_id"), PositiveInt("category_id")},
			},
			{
				Name:   "media",
				Title:  "Video and thumbnail",
				Fields: []string{"video_file", "thumbnail_file"},
				Rules: []Rule{
					RequiredFile("video_file"),
					FileConstraint("video_file", VideoLimit),
					RequiredFile("thumbnail_file"),
					FileConstraint("thumbnail_file", ThumbnailLimit),
				},
			},
			{
				Name:   "pricing",
				Title:  "Pricing",
				Fields: []string{"is_free", "price"},
				Rules:  []Rule{PricedUnlessFree("price", "is_free")},
			},
		},
		Flags: []string{"is_free"},
		Omit:  omitWhenFree("price", "is_free"),
	}
}

// CompetitionCreate posts a live-music competition.
//
// Judging criteria weights must total 100 before submitting. Prize shares are
// only reported when they don't.
func CompetitionCreate() *Flow {
	return &Flow{
		Kind:     FlowCompetitionCreate,
		Title:    "Create a competition",
		Method:   http.MethodPost,
		Endpoint: "/api/competitions",
		Encoding: EncodingMultipart,
		Steps: []Step{
			{
				Name:   "basics",
				Title:  "Basics",
				Fields: []string{"title", "description", "genre"},
				Rules:  []Rule{Required("title"), Required("description")},
			},
			{
				Name:   "schedule",
				Title:  "Schedule",
				Fields: []string{"start_date", "end_date", "max_participants"},
				Rules:  []Rule{Required("start_date"), Required("end_date"), DateOrder("start_date", "end_date")},
			},
			{
				Name:   "criteria",
				Title:  "Judging criteria",
				Fields: []string{"judging_criteria"},
				Rules:  []Rule{ListItemsRequire("judging_criteria", "name"), WeightsSumTo("judging_criteria", "weight", 100)},
			},
			{
				Name:   "prizes",
				Title:  "Prizes",
				Fields: []string{"prizes"},
				Rules:  []Rule{ListItemsRequire("prizes", "rank"), SharesAdvisory("prizes", "percentage", 100)},
			},
			{
				Name:   "entry",
				Title:  "Entry fee",
				Fields: []string{"is_free_entry", "entry_fee"},
				Rules:  []Rule{PricedUnlessFree("entry_fee", "is_free_entry")},
			},
			{
				Name:   "cover",
				Title:  "Cover image",
				Fields: []string{"cover_image"},
				Rules:  []Rule{RequiredFile("cover_image"), FileConstraint("cover_image", CoverLimit)},
			},
		},
		Flags: []string{"is_free_entry"},
		Omit:  omitWhenFree("entry_fee", "is_free_entry"),
		Prepare: func(f models.FormState) {
			if f.String("slug") == "" {
				f.Set("slug", shared.Slugify(f.String("title"), "competition"))
			}
		},
	}
}

// TicketCheckout buys tickets for an event. It posts JSON to the event's checkout endpoint.
func TicketCheckout() *Flow {
	return &Flow{
		Kind:     FlowTicketCheckout,
		Title:    "Buy tickets",
		Method:   http.MethodPost,
		Endpoint: "/api/events/{event_id}/checkout",
		Encoding: EncodingJSON,
		Steps: []Step{
			{
				Name:   "tickets",
				Title:  "Tickets",
				Fields: []string{"event_id", "ticket_type", "quantity"},
				Rules:  []Rule{Required("event_id"), Required("ticket_type"), PositiveInt("quantity")},
			},
			{
				Name:   "attendee",
				Title:  "Attendee",
				Fields: []string{"name", "email", "phone"},
				Rules:  []Rule{Required("name"), Required("email"), Email("email")},
			},
			{
				Name:   "payment",
				Title:  "Payment",
				Fields: []string{"payment_method"},
				Rules:  []Rule{Required("payment_method")},
			},
			{
				Name:  "review",
				Title: "Review",
			},
		},
	}
}

// ArtistProfile updates the signed-in artist's profile in a single step.
func ArtistProfile() *Flow {
	return &Flow{
		Kind:     FlowArtistProfile,
		Title:    "Artist profile",
		Method:   http.MethodPost,
		Endpoint: "/api/artists/me",
		Encoding: EncodingMultipart,
		Steps: []Step{
			{
				Name:   "profile",
				Title:  "Profile",
				Fields: []string{"display_name", "bio", "website", "avatar"},
				Rules:  []Rule{Required("display_name"), FileConstraint("avatar", AvatarLimit)},
			},
		},
	}
}
