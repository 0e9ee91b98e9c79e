package domain

import (
	"strings"
	"time"
)

// Label identifies the type of a vertex in the graph.
type Label string

const (
	LabelUser  Label = "user"
	LabelShard Label = "shard"
	LabelPost  Label = "post"
)

// EdgeLabel identifies the type of a directed edge. At most one edge exists
// per (label, from, to) triple; re-adding an existing edge is a no-op.
type EdgeLabel string

const (
	// EdgeFollows is a subscription: user -> user or user -> shard.
	EdgeFollows EdgeLabel = "follows"

	// EdgeOwns records creation authority: user -> shard, set once.
	EdgeOwns EdgeLabel = "owns"

	// EdgeInherits is a content-inclusion edge: shard -> shard or
	// shard -> user. Content posted to the target counts as posted to the
	// inheriting shard, transitively.
	EdgeInherits EdgeLabel = "inherits"

	// EdgeSubmitted is authorship: user -> post, exactly one per post.
	EdgeSubmitted EdgeLabel = "submitted"

	// EdgeUpvoted is an engagement signal: user -> post, at most one per pair.
	EdgeUpvoted EdgeLabel = "upvoted"

	// EdgePostedIn is placement: post -> shard or post -> user profile.
	EdgePostedIn EdgeLabel = "posted_in"

	// EdgeCommentOn is a reply relationship: post -> parent post.
	EdgeCommentOn EdgeLabel = "comment_on"
)

// EntityRef identifies a vertex by its label and lowercase unique key
// (username, shardName, or postId).
type EntityRef struct {
	Label Label
	Key   string
}

func UserRef(username string) EntityRef {
	return EntityRef{Label: LabelUser, Key: NormalizeKey(username)}
}

func ShardRef(name string) EntityRef {
	return EntityRef{Label: LabelShard, Key: NormalizeKey(name)}
}

func PostRef(id string) EntityRef {
	return EntityRef{Label: LabelPost, Key: NormalizeKey(id)}
}

// NormalizeKey lowercases and trims an identifier. All graph lookups go
// through this; display casing is preserved in a separate property.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Vertex is a stored graph vertex: a typed label, the unique key for that
// label, and a flat property bag. Missing properties read as empty strings.
type Vertex struct {
	Label Label
	Key   string
	Props map[string]string
}

// Ref returns the EntityRef addressing this vertex.
func (v *Vertex) Ref() EntityRef {
	return EntityRef{Label: v.Label, Key: v.Key}
}

// Prop returns a property value, or "" if the property is absent.
func (v *Vertex) Prop(key string) string {
	return v.Props[key]
}

// BoolProp returns true only if the property is stored as "true".
func (v *Vertex) BoolProp(key string) bool {
	return v.Props[key] == "true"
}

// TimeProp parses an RFC 3339 property. Absent or malformed values read as
// the zero time rather than erroring.
func (v *Vertex) TimeProp(key string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v.Props[key])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Property names shared across stores. Identity keys (username, shardName,
// postId) are also stored as properties so projections can read them back.
const (
	PropUsername     = "username"
	PropShardName    = "shardName"
	PropPostID       = "postId"
	PropDisplayName  = "displayName"
	PropFriendlyName = "friendlyName"
	PropBio          = "bio"
	PropLocation     = "location"
	PropAvatar       = "avatar"
	PropBanner       = "banner"
	PropWebsite      = "website"
	PropDescription  = "description"
	PropRules        = "rules"
	PropLinks        = "links"
	PropTitle        = "title"
	PropFilename     = "filename"
	PropContentURL   = "contentUrl"
	PropBody         = "body"
	PropVerified     = "verified"
	PropFeatured     = "featured"
	PropCreatedAt    = "createdAt"
)

// UserView is the public projection of a user vertex: stored properties plus
// derived counts computed live from edge cardinality.
type UserView struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Location    string    `json:"location,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Banner      string    `json:"banner,omitempty"`
	Website     string    `json:"website,omitempty"`
	Verified    bool      `json:"verified"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"createdAt"`

	NumFollowers   int `json:"numFollowers"`
	NumFollowing   int `json:"numFollowing"`
	NumShards      int `json:"numShards"`
	NumInheritedBy int `json:"numInheritedBy"`

	// ViewerFollows reports whether the requesting viewer follows this user.
	// Always false for anonymous reads.
	ViewerFollows bool `json:"viewerFollows"`
}

// ShardView is the public projection of a shard vertex.
type ShardView struct {
	ShardName    string    `json:"shardName"`
	FriendlyName string    `json:"friendlyName,omitempty"`
	Description  string    `json:"description,omitempty"`
	Rules        string    `json:"rules,omitempty"`
	Links        string    `json:"links,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Banner       string    `json:"banner,omitempty"`
	Featured     bool      `json:"featured"`
	CreatedAt    time.Time `json:"createdAt"`

	// Owner is the username of the creating user, empty if the owns edge is
	// missing.
	Owner string `json:"owner,omitempty"`

	NumFollowers   int `json:"numFollowers"`
	NumInherits    int `json:"numInherits"`
	NumInheritedBy int `json:"numInheritedBy"`

	ViewerFollows bool `json:"viewerFollows"`
}

// PostView is the public projection of a post vertex.
type PostView struct {
	PostID     string    `json:"postId"`
	Title      string    `json:"title,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	ContentURL string    `json:"contentUrl,omitempty"`
	Body       string    `json:"body,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`

	// Author is the username of the single submitting user.
	Author string `json:"author"`

	// Placement: exactly one of these is set for a well-formed post.
	PostedInShard string `json:"postedInShard,omitempty"`
	PostedInUser  string `json:"postedInUser,omitempty"`
	ParentPost    string `json:"parentPost,omitempty"`

	NumUpvotes int `json:"numUpvotes"`
}

// EntityView is a tagged union over the three projection types, used by the
// label-generic listing queries. Exactly one field is non-nil.
type EntityView struct {
	User  *UserView  `json:"user,omitempty"`
	Shard *ShardView `json:"shard,omitempty"`
	Post  *PostView  `json:"post,omitempty"`
}

// Event is the envelope published to the write-event stream.
type Event struct {
	Kind    string    `json:"kind"`
	Actor   string    `json:"actor"`
	Subject string    `json:"subject"`
	Time    time.Time `json:"time"`
}

// Event kinds.
const (
	EventPostCreated  = "post.created"
	EventFollow       = "follow"
	EventUpvote       = "upvote"
	EventShardInherit = "shard.inherit"
)

// EventSink receives write-path events. Implementations must not block.
type EventSink interface {
	Publish(event Event)
}
