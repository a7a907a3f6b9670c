package app

// PlayersPerMatch is the number of parties a match needs before placement starts.
const PlayersPerMatch = 2

// maxJoinAttempts bounds how often Join retries after losing a race for an open match.
const maxJoinAttempts = 3
