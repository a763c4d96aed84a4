// Package contracts holds trimmed copies of real responses from the APIs
// gamefeed talks to. Client tests replay them to catch schema drift: when an
// API changes shape, refresh the sample here and the parsers follow.
package contracts

// TwitchTokenContract is a client-credentials grant from id.twitch.tv.
const TwitchTokenContract = `{
  "access_token": "jostpf5q0uzmxmkba9iyug38kjtgh",
  "expires_in": 5011271,
  "token_type": "bearer"
}`

// IGDBGamesContract is a /v4/games reply for the candidate field list.
const IGDBGamesContract = `[
  {
    "id": 325591,
    "aggregated_rating": 84.0,
    "aggregated_rating_count": 6,
    "cover": 372120,
    "first_release_date": 1759968000,
    "follows": 17,
    "game_modes": [1],
    "genres": [12, 31],
    "hypes": 41,
    "name": "Hollow Lantern",
    "platforms": [6, 167],
    "rating": 78.2,
    "rating_count": 22,
    "themes": [1, 17],
    "websites": [
      {"id": 812001, "category": 1, "url": "https://hollowlantern.example"},
      {"id": 812002, "category": 13, "url": "https://store.steampowered.com/app/2531310/Hollow_Lantern/"}
    ]
  }
]`

// IGDBExternalGamesContract is a /v4/external_games reply.
const IGDBExternalGamesContract = `[
  {"id": 2915034, "category": 1, "game": 325591, "uid": "2531310"}
]`

// IGDBPlatformsContract is a /v4/platforms reply for a name lookup.
const IGDBPlatformsContract = `[
  {"id": 6, "name": "PC (Microsoft Windows)"},
  {"id": 167, "name": "PlayStation 5"}
]`

// SteamSearchContract is a store /search/results/?json=1 reply.
const SteamSearchContract = `{
  "desc": "",
  "items": [
    {"name": "Hollow Lantern", "logo": "https://shared.akamai.steamstatic.com/store_item_assets/steam/apps/2531310/capsule_sm_120.jpg?t=1759968000"},
    {"name": "Kite Season", "logo": "https://shared.akamai.steamstatic.com/store_item_assets/steam/apps/2400/capsule_sm_120.jpg?t=1759881600"}
  ]
}`

// SteamReviewsContract is a store /appreviews/{appid}?json=1 reply.
const SteamReviewsContract = `{
  "success": 1,
  "query_summary": {
    "num_reviews": 0,
    "review_score": 8,
    "review_score_desc": "Very Positive",
    "total_positive": 1931,
    "total_negative": 102,
    "total_reviews": 2033
  },
  "reviews": [],
  "cursor": "*"
}`

// SteamAppDetailsContract is a store /api/appdetails reply.
const SteamAppDetailsContract = `{
  "2531310": {
    "success": true,
    "data": {
      "type": "game",
      "name": "Hollow Lantern",
      "steam_appid": 2531310,
      "categories": [{"id": 2, "description": "Single-player"}, {"id": 18, "description": "Partial Controller Support"}],
      "genres": [{"id": "1", "description": "Action"}, {"id": "70", "description": "Early Access"}]
    }
  }
}`

// SteamNewsContract is an ISteamNews/GetNewsForApp/v2 reply.
const SteamNewsContract = `{
  "appnews": {
    "appid": 2531310,
    "newsitems": [
      {
        "gid": "5760923183740129536",
        "title": " Patch 1.0.4 ",
        "url": "https://steamstore-a.akamaihd.net/news/externalpost/steam_community_announcements/5760923183740129536",
        "is_external_url": true,
        "author": "dev",
        "contents": "<p>Build 20411825 fixes the lantern flicker.</p>",
        "feedlabel": "Community Announcements",
        "date": 1760000000,
        "feedname": "steam_community_announcements",
        "feed_type": 1,
        "appid": 2531310,
        "tags": ["patchnotes"]
      }
    ],
    "count": 14
  }
}`

// SteamCMDInfoContract is an api.steamcmd.net /v1/info/{appid} reply.
const SteamCMDInfoContract = `{
  "data": {
    "2531310": {
      "_change_number": 30119514,
      "_missing_token": false,
      "_sha": "8b7f2a",
      "_size": 30211,
      "appid": "2531310",
      "common": {
        "name": "Hollow Lantern",
        "library_assets_full": {
          "library_capsule": {"image": {"english": "library_600x900.jpg"}}
        }
      },
      "depots": {
        "2531311": {"manifests": {"public": {"gid": "4125412239049512392", "size": "2088123456"}}},
        "branches": {
          "public": {"buildid": "20411825", "timeupdated": "1760000000"}
        }
      }
    }
  },
  "status": "success"
}`
