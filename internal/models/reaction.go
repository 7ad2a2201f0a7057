package models

// ReactionLike is the only reaction kind currently offered.
const ReactionLike = "like"
