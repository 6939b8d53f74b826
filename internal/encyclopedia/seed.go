package encyclopedia

import "time"

// Well-known category ids used by the default view configuration.
const (
	CategoryWebSearch   = "enc-all-search"
	CategoryNews        = "enc-news"
	CategoryBlogs       = "enc-blogs"
	CategoryYouTube     = "enc-youtube"
	CategoryPodcasts    = "enc-podcasts"
	CategoryFacebook    = "enc-facebook"
	CategoryTwitter     = "enc-twitter-x"
	CategoryLinkedIn    = "enc-linkedin"
	CategoryInstagram   = "enc-instagram"
	CategoryOtherSocial = "enc-other-social"
	CategoryLocations   = "enc-google-locations"
	CategoryFeatures    = "enc-stories-features"
	CategoryBooks       = "enc-books"
	CategoryPatents     = "enc-patents"
	CategoryLegal       = "enc-legal-public"
	CategoryPhotos      = "enc-sample-photos"
)

// Seed returns the first-run category set. Link timestamps are relative to now.
func Seed(now time.Time) []Category {
	daysAgo := func(n int) *time.Time {
		t := now.AddDate(0, 0, -n)
		return &t
	}

	return []Category{
		{
			ID:          CategoryWebSearch,
			Title:       "General Web Search",
			Description: "Links collected from search engines for the profile name and its common spelling variations, before they are sorted into more specific collections.",
			Links: []Link{
				{ID: "link-gs-1", Title: "Example: Google result", URL: "https://google.com/search?q=example+result+1", Excerpt: "An example search result from Google.", Timestamp: daysAgo(5)},
				{ID: "link-bs-1", Title: "Example: Bing result", URL: "https://bing.com/search?q=example+result+2", Excerpt: "An example search result from Bing.", Timestamp: daysAgo(6)},
			},
		},
		{
			ID:          CategoryNews,
			Title:       "News Articles",
			Description: "News coverage of the profile, its work, or related topics.",
			Links: []Link{
				{ID: "link-news-1", Title: "Forbes: Innovation in Energy", URL: "https://www.forbes.com/example-innovation-in-energy", Excerpt: "Forbes highlights contributions to the energy sector and a sustainable approach to new products.", Timestamp: daysAgo(3), PlatformLabel: "Forbes"},
				{ID: "link-news-2", Title: "Business Today: A Vision for Future Tech", URL: "https://www.businesstoday.example/future-tech", Excerpt: "An exclusive interview on the future of technology and its impact on several industries.", Timestamp: daysAgo(10), PlatformLabel: "Business Today"},
			},
		},
		{
			ID:          CategoryBlogs,
			Title:       "Blog Posts & Opinion Pieces",
			Description: "Blog posts and opinion pieces. Note the source and any potential bias.",
			Links: []Link{
				{ID: "link-blog-1", Title: "Tech blogger on a company legacy", URL: "https://techblog.example/company-legacy", Excerpt: "A detailed analysis of a company's legacy by a prominent tech blogger.", Timestamp: daysAgo(15), PlatformLabel: "TechBlog Example"},
			},
		},
		{
			ID:          CategoryYouTube,
			Title:       "YouTube Content",
			Description: "Interviews, talks, documentaries, or discussions on YouTube.",
			Links: []Link{
				{ID: "link-yt-1", Title: "Interview on Innovation", URL: "https://youtube.com/example/interview", Excerpt: "A 30-minute interview covering a career journey and thoughts on innovation.", Timestamp: daysAgo(20), PlatformLabel: "YouTube ExampleChannel"},
			},
		},
		{ID: CategoryPodcasts, Title: "Podcast Appearances & Mentions", Description: "Podcast episodes where the profile is a guest or is significantly discussed.", Links: []Link{}},
		{ID: CategoryFacebook, Title: "Facebook Mentions", Description: "Facebook posts, pages, or groups.", Links: []Link{}},
		{ID: CategoryTwitter, Title: "Twitter (X) Mentions", Description: "Tweets, profiles, or threads on Twitter (X).", Links: []Link{}},
		{ID: CategoryLinkedIn, Title: "LinkedIn Mentions", Description: "LinkedIn posts, articles, or profiles.", Links: []Link{}},
		{
			ID:          CategoryInstagram,
			Title:       "Instagram Mentions",
			Description: "Instagram posts, reels, or profiles.",
			Links: []Link{
				{ID: "link-insta-1", Title: "Speaker at Tech Conference", URL: "https://placehold.co/1080x1080.png", Excerpt: "A photo from a recent tech conference.", Timestamp: daysAgo(2), PlatformLabel: "Instagram Placeholder"},
			},
		},
		{ID: CategoryOtherSocial, Title: "Other Social Media Platforms", Description: "Reddit, Quora, TikTok and other platforms.", Links: []Link{}},
		{ID: CategoryLocations, Title: "Google Maps / Location Reviews", Description: "Locations and business profiles where reviews can be found.", Links: []Link{}},
		{ID: CategoryFeatures, Title: "Stories & In-depth Features", Description: "Long-form stories, biographical features, or case studies.", Links: []Link{}},
		{ID: CategoryBooks, Title: "Books & Publications", Description: "Books authored by, about, or significantly featuring the profile.", Links: []Link{}},
		{ID: CategoryPatents, Title: "Patents & Intellectual Property", Description: "Patent filings and intellectual property discussions.", Links: []Link{}},
		{ID: CategoryLegal, Title: "Public Legal Mentions & Filings", Description: "Publicly accessible legal documents, case mentions, or official filings.", Links: []Link{}},
		{
			ID:          CategoryPhotos,
			Title:       "Sample Photos & Media",
			Description: "Sample photos and media for the photo gallery.",
			Verified:    true,
			Links: []Link{
				{ID: "photo-sample-1", Title: "Corporate Event Speaker", URL: "https://placehold.co/600x400.png", Excerpt: "Speaking at a corporate event.", Timestamp: daysAgo(7), PlatformLabel: "Event Photography"},
				{ID: "photo-sample-2", Title: "Innovation Award Ceremony", URL: "https://placehold.co/400x600.png", Excerpt: "Receiving an award for innovation.", Timestamp: daysAgo(14), PlatformLabel: "Awards Gala"},
				{ID: "photo-sample-3", Title: "Team Meeting Brainstorm", URL: "https://placehold.co/800x500.png", Excerpt: "Leading a brainstorming session.", Timestamp: daysAgo(21), PlatformLabel: "Internal Photos"},
			},
		},
	}
}

// DefaultMentionCategories lists the categories surfaced as mentions.
func DefaultMentionCategories() []string {
	return []string{CategoryWebSearch, CategoryNews, CategoryBlogs, CategoryYouTube, CategoryPodcasts, CategoryFeatures}
}

// DefaultAnalyticsCategories lists the categories counted in analytics.
func DefaultAnalyticsCategories() []string {
	return []string{
		CategoryWebSearch, CategoryNews, CategoryBlogs, CategoryYouTube, CategoryPodcasts,
		CategoryFacebook, CategoryTwitter, CategoryLinkedIn, CategoryInstagram,
		CategoryOtherSocial, CategoryLocations, CategoryFeatures,
	}
}
